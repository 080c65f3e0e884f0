package links

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Offer is one outbound affiliate destination. The URL is a template;
// {click_id} and {gclid} macros (and the legacy YOUR_CLICK_ID placeholder)
// are substituted per redirect.
type Offer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Registry holds the configured outbound offers, keyed by id. Built once at
// startup and read-only afterwards.
type Registry struct {
	offers map[string]Offer
}

// NewRegistry builds a registry from a list of offers. Offers with an empty
// id or URL are skipped.
func NewRegistry(offers []Offer) *Registry {
	byID := make(map[string]Offer, len(offers))
	for _, offer := range offers {
		if offer.ID == "" || offer.URL == "" {
			continue
		}
		byID[offer.ID] = offer
	}
	return &Registry{offers: byID}
}

// LoadRegistry reads the offer list from a JSON file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read offers file: %w", err)
	}

	var offers []Offer
	if err := json.Unmarshal(data, &offers); err != nil {
		return nil, fmt.Errorf("failed to parse offers file: %w", err)
	}

	return NewRegistry(offers), nil
}

// Get returns the offer with the given id.
func (r *Registry) Get(id string) (Offer, bool) {
	offer, ok := r.offers[id]
	return offer, ok
}

// Len returns the number of configured offers.
func (r *Registry) Len() int {
	return len(r.offers)
}

// BuildURL substitutes tracking macros into an offer URL template. An empty
// gclid substitutes to an empty string rather than leaving the macro in the
// outbound URL.
func BuildURL(template, clickID, gclid string) string {
	url := template
	url = strings.ReplaceAll(url, "{click_id}", clickID)
	url = strings.ReplaceAll(url, "{gclid}", gclid)
	url = strings.ReplaceAll(url, "YOUR_CLICK_ID", clickID)
	return url
}

// GetOrCreateClickID returns the caller-supplied click id when present,
// otherwise generates a fresh one.
func GetOrCreateClickID(supplied string) string {
	if trimmed := strings.TrimSpace(supplied); trimmed != "" {
		return trimmed
	}
	return uuid.New().String()
}
