package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"postback-ingest-api/internal/cache"
	"postback-ingest-api/internal/events"
	"postback-ingest-api/internal/features"
	"postback-ingest-api/internal/links"
	"postback-ingest-api/internal/metrics"
	"postback-ingest-api/internal/models"
	"postback-ingest-api/internal/service"
	"postback-ingest-api/internal/validation"
)

// Response policies for persistence failures. Strict signals the caller with
// a 500 so the network retries (safe: retries are collapsed by the dedup
// key). AlwaysOK answers 200 regardless, for partners that disable a postback
// URL after repeated errors. One policy applies to every code path.
const (
	PolicyStrict   = "strict"
	PolicyAlwaysOK = "always-ok"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	clickTTL         = 30 * 24 * time.Hour
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service        *service.Service
	offers         *links.Registry
	cache          cache.Cache
	events         *events.Manager
	flags          *features.Manager
	maxBodySize    int64
	responsePolicy string
	requireClickID bool
	acceptPostBody bool
}

// Options holds options for creating a handler.
type Options struct {
	Offers         *links.Registry
	Cache          cache.Cache
	Events         *events.Manager
	Flags          *features.Manager
	MaxBodySize    int64
	ResponsePolicy string
	RequireClickID bool
	AcceptPostBody bool
}

// DefaultOptions returns default handler options.
func DefaultOptions() Options {
	return Options{
		MaxBodySize:    1 << 20, // postbacks are tiny; 1MB is generous
		ResponsePolicy: PolicyStrict,
		AcceptPostBody: true,
	}
}

// NewHandler creates a new handler instance with default options.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts Options) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultOptions().MaxBodySize
	}
	if opts.ResponsePolicy != PolicyAlwaysOK {
		opts.ResponsePolicy = PolicyStrict
	}
	return &Handler{
		service:        svc,
		offers:         opts.Offers,
		cache:          opts.Cache,
		events:         opts.Events,
		flags:          opts.Flags,
		maxBodySize:    opts.MaxBodySize,
		responsePolicy: opts.ResponsePolicy,
		requireClickID: opts.RequireClickID,
		acceptPostBody: opts.AcceptPostBody,
	}
}

// HandlePostback handles GET and POST /postback.
//
// Query parameters and (for POST) JSON body members are merged into one
// parameter set, body values winning on conflict. The request is then
// classified, normalized and persisted; the response is always plain text.
func (h *Handler) HandlePostback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		metrics.PostbackRejected("method_not_allowed")
		h.respondText(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	params := make(map[string]string)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			params[name] = values[0]
		}
	}

	if r.Method == http.MethodPost && h.bodyMergeEnabled() {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
		if err := mergeJSONBody(r, params); err != nil {
			metrics.PostbackRejected("bad_body")
			h.respondText(w, http.StatusBadRequest, "Invalid body")
			return
		}
	}

	params = validation.SanitizeParams(params)

	if h.clickIDRequired() && h.service.ClickID(params) == "" {
		metrics.PostbackRejected("missing_click_id")
		h.respondText(w, http.StatusBadRequest, "Missing click_id")
		return
	}

	if _, err := h.service.Ingest(r.Context(), params); err != nil {
		if h.responsePolicy == PolicyAlwaysOK {
			h.respondText(w, http.StatusOK, "OK")
			return
		}
		h.respondText(w, http.StatusInternalServerError, "ERROR")
		return
	}

	h.respondText(w, http.StatusOK, "OK")
}

// ListPostbacks handles GET /postbacks.
func (h *Handler) ListPostbacks(w http.ResponseWriter, r *http.Request) {
	partner := validation.SanitizeString(r.URL.Query().Get("partner"))

	limit, err := validation.ValidateLimit(r.URL.Query().Get("limit"), defaultListLimit, maxListLimit)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := h.service.RecentPostbacks(r.Context(), partner, limit)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// Stats handles GET /postbacks/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	response, err := h.service.Stats(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// Redirect handles GET /go/{offer_id}: substitute tracking macros into the
// offer's URL template and send the visitor on with a click id attached.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	if h.offers == nil {
		h.respondError(w, http.StatusNotFound, "no offers configured")
		return
	}

	offerID := validation.SanitizeString(chi.URLParam(r, "offer_id"))
	offer, ok := h.offers.Get(offerID)
	if !ok {
		h.respondError(w, http.StatusNotFound, "unknown offer")
		return
	}

	clickID := links.GetOrCreateClickID(r.URL.Query().Get("click_id"))
	gclid := validation.SanitizeString(r.URL.Query().Get("gclid"))

	if h.cache != nil {
		// Remembered so a later postback for this click id can be correlated.
		_ = h.cache.Set(r.Context(), cache.ClickKey(clickID), offer.ID, clickTTL)
	}

	metrics.OutboundClick(offer.ID)
	if h.events != nil {
		h.events.PublishClickTracked(r.Context(), offer.ID, clickID, gclid)
	}

	http.Redirect(w, r, links.BuildURL(offer.URL, clickID, gclid), http.StatusFound)
}

// bodyMergeEnabled consults the runtime flag when a flag manager is wired,
// falling back to the static option otherwise.
func (h *Handler) bodyMergeEnabled() bool {
	if h.flags != nil {
		return h.flags.IsEnabled(features.FlagAcceptPostBody)
	}
	return h.acceptPostBody
}

func (h *Handler) clickIDRequired() bool {
	if h.flags != nil {
		return h.flags.IsEnabled(features.FlagRequireClickID)
	}
	return h.requireClickID
}

// mergeJSONBody decodes a flat JSON object body into params, overwriting
// same-named query values. Nested values are ignored; numbers and booleans
// are stringified the way they appeared on the wire.
func mergeJSONBody(r *http.Request, params map[string]string) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()

	var body map[string]interface{}
	if err := decoder.Decode(&body); err != nil {
		return err
	}

	for name, value := range body {
		switch v := value.(type) {
		case string:
			params[name] = v
		case json.Number:
			params[name] = v.String()
		case bool:
			if v {
				params[name] = "true"
			} else {
				params[name] = "false"
			}
		}
	}

	return nil
}

// respondText sends a plain-text response with the given status code.
func (h *Handler) respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
