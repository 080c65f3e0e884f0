package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"postback-ingest-api/internal/cache"
	"postback-ingest-api/internal/database"
	"postback-ingest-api/internal/links"
	"postback-ingest-api/internal/models"
	"postback-ingest-api/internal/scheme"
	"postback-ingest-api/internal/service"
)

func setupTest(t *testing.T, opts Options) (*Handler, *service.Service, *database.DB, func()) {
	dbPath := "./test_handler_" + uuid.New().String() + ".db"
	db, err := database.NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	svc := service.NewService(db, scheme.DefaultMappings())
	h := NewHandlerWithOptions(svc, opts)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return h, svc, db, cleanup
}

func setupRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Handle("/postback", http.HandlerFunc(h.HandlePostback))
	r.Get("/postbacks", h.ListPostbacks)
	r.Get("/postbacks/stats", h.Stats)
	r.Get("/go/{offer_id}", h.Redirect)
	return r
}

func TestHandlePostback_GetSuccess(t *testing.T) {
	h, _, _, cleanup := setupTest(t, DefaultOptions())
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/postback?offer_id=55&transaction_id=tx1&status_name=approved&click_id=abc123&payout=10,50&country=no", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", rr.Body.String())
	}
}

func TestHandlePostback_MethodNotAllowed(t *testing.T) {
	h, _, _, cleanup := setupTest(t, DefaultOptions())
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("PUT", "/postback?click_id=abc", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected status 405, got %d", rr.Code)
	}
	if rr.Body.String() != "Method Not Allowed" {
		t.Errorf("Expected body 'Method Not Allowed', got '%s'", rr.Body.String())
	}
}

func TestHandlePostback_StrictModeMissingClickID(t *testing.T) {
	opts := DefaultOptions()
	opts.RequireClickID = true
	h, svc, _, cleanup := setupTest(t, opts)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/postback?offer_id=55&payout=1.00", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
	if rr.Body.String() != "Missing click_id" {
		t.Errorf("Expected body 'Missing click_id', got '%s'", rr.Body.String())
	}

	// Nothing may have been persisted.
	response, err := svc.RecentPostbacks(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("Failed to list postbacks: %v", err)
	}
	if len(response.Postbacks) != 0 {
		t.Fatalf("Expected no rows after rejection, got %d", len(response.Postbacks))
	}
}

func TestHandlePostback_PostBodyOverridesQuery(t *testing.T) {
	h, svc, _, cleanup := setupTest(t, DefaultOptions())
	defer cleanup()

	r := setupRouter(h)

	body, _ := json.Marshal(map[string]interface{}{
		"payout":   "2,50",
		"offer_id": 7,
	})
	req := httptest.NewRequest("POST", "/postback?payout=1,00&click_id=abc", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	response, err := svc.RecentPostbacks(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("Failed to list postbacks: %v", err)
	}
	if len(response.Postbacks) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(response.Postbacks))
	}

	record := response.Postbacks[0]
	if record.Payout != "2.50" {
		t.Errorf("Body payout should win over query: expected 2.50, got %s", record.Payout)
	}
	if record.OfferID != "7" {
		t.Errorf("Expected numeric body value stringified to 7, got %s", record.OfferID)
	}
}

func TestHandlePostback_InvalidJSONBody(t *testing.T) {
	h, _, _, cleanup := setupTest(t, DefaultOptions())
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("POST", "/postback?click_id=abc", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
}

func TestHandlePostback_StrictPolicyOnStorageFailure(t *testing.T) {
	h, _, db, cleanup := setupTest(t, DefaultOptions())
	defer cleanup()

	r := setupRouter(h)

	// Closing the database makes the insert fail.
	db.Close()

	req := httptest.NewRequest("GET", "/postback?click_id=abc", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500 under strict policy, got %d", rr.Code)
	}
	if rr.Body.String() != "ERROR" {
		t.Errorf("Expected body 'ERROR', got '%s'", rr.Body.String())
	}
}

func TestHandlePostback_AlwaysOKPolicyOnStorageFailure(t *testing.T) {
	opts := DefaultOptions()
	opts.ResponsePolicy = PolicyAlwaysOK
	h, _, db, cleanup := setupTest(t, opts)
	defer cleanup()

	r := setupRouter(h)

	db.Close()

	req := httptest.NewRequest("GET", "/postback?click_id=abc", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200 under always-ok policy, got %d", rr.Code)
	}
	if rr.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", rr.Body.String())
	}
}

func TestListPostbacks(t *testing.T) {
	h, svc, _, cleanup := setupTest(t, DefaultOptions())
	defer cleanup()

	r := setupRouter(h)

	if _, err := svc.Ingest(context.Background(), map[string]string{"sub1": "v1"}); err != nil {
		t.Fatalf("Failed to ingest: %v", err)
	}

	req := httptest.NewRequest("GET", "/postbacks?partner=vortex", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var response models.RecentPostbacksResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response.Postbacks) != 1 {
		t.Fatalf("Expected 1 postback, got %d", len(response.Postbacks))
	}
}

func TestListPostbacks_InvalidLimit(t *testing.T) {
	h, _, _, cleanup := setupTest(t, DefaultOptions())
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/postbacks?limit=abc", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
}

func TestRedirect(t *testing.T) {
	opts := DefaultOptions()
	opts.Offers = links.NewRegistry([]links.Offer{
		{ID: "ofs-201", Name: "NordFlirt", URL: "https://example.com/click?sub1={click_id}&sub2={gclid}"},
	})
	opts.Cache = cache.NewInMemoryCache()
	h, _, _, cleanup := setupTest(t, opts)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/go/ofs-201?gclid=g123", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", rr.Code)
	}

	location := rr.Header().Get("Location")
	if strings.Contains(location, "{click_id}") || strings.Contains(location, "{gclid}") {
		t.Errorf("Macros not substituted: %s", location)
	}
	if !strings.Contains(location, "sub2=g123") {
		t.Errorf("Expected gclid in outbound URL, got %s", location)
	}
	if strings.Contains(location, "sub1=&") {
		t.Errorf("Expected a generated click id, got %s", location)
	}
}

func TestRedirect_SuppliedClickIDWins(t *testing.T) {
	opts := DefaultOptions()
	opts.Offers = links.NewRegistry([]links.Offer{
		{ID: "ofs-101", Name: "Single Slavic", URL: "https://example.com/?sub1={click_id}"},
	})
	h, _, _, cleanup := setupTest(t, opts)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/go/ofs-101?click_id=mine", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "https://example.com/?sub1=mine" {
		t.Errorf("Expected supplied click id in URL, got %s", got)
	}
}

func TestRedirect_UnknownOffer(t *testing.T) {
	opts := DefaultOptions()
	opts.Offers = links.NewRegistry(nil)
	h, _, _, cleanup := setupTest(t, opts)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/go/nope", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rr.Code)
	}
}
