package models

// Postback is the normalized record persisted for every accepted postback.
// Every field except Partner, RawQuery and DedupKey may be empty when the
// inbound request carried nothing that maps onto it.
type Postback struct {
	Partner       string `json:"partner"` // scheme tag, never empty ("unknown" fallback)
	ClickID       string `json:"click_id"`
	OfferID       string `json:"offer_id"`
	Goal          string `json:"goal"`
	Payout        string `json:"payout"`   // canonical decimal string, e.g. "10.50"
	Currency      string `json:"currency"` // upper-cased, e.g. "USD"
	Geo           string `json:"geo"`      // upper-cased country code, e.g. "NO"
	Gclid         string `json:"gclid"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	IP            string `json:"ip"`
	RawQuery      string `json:"raw_query"` // exact inbound parameter set, JSON-serialized
	DedupKey      string `json:"dedup_key"` // deterministic hash used for duplicate suppression
}

// StoredPostback is a persisted row as returned by read queries.
type StoredPostback struct {
	ID int64 `json:"id"`
	Postback
	ReceivedAt string `json:"received_at"` // set by the storage layer
}

// IngestResult reports the outcome of a single ingest call.
type IngestResult struct {
	Record    Postback `json:"record"`
	Duplicate bool     `json:"duplicate"`
}

// RecentPostbacksResponse is the payload for the recent-postbacks listing.
type RecentPostbacksResponse struct {
	Postbacks []StoredPostback `json:"postbacks"`
}

// PartnerCount is one row of the per-partner stats aggregate.
type PartnerCount struct {
	Partner string `json:"partner"`
	Count   int64  `json:"count"`
}

// StatsResponse is the payload for the per-partner stats endpoint.
type StatsResponse struct {
	Partners []PartnerCount `json:"partners"`
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
