package scheme

// Canonical field names that scheme-specific parameter names are mapped onto.
const (
	FieldClickID       = "click_id"
	FieldOfferID       = "offer_id"
	FieldGoal          = "goal"
	FieldPayout        = "payout"
	FieldCurrency      = "currency"
	FieldGeo           = "geo"
	FieldGclid         = "gclid"
	FieldTransactionID = "transaction_id"
	FieldStatus        = "status"
	FieldIP            = "ip"
)

// Fields lists every canonical field in a stable order.
var Fields = []string{
	FieldClickID,
	FieldOfferID,
	FieldGoal,
	FieldPayout,
	FieldCurrency,
	FieldGeo,
	FieldGclid,
	FieldTransactionID,
	FieldStatus,
	FieldIP,
}

// FieldCandidates maps a canonical field name to an ordered list of source
// parameter names to probe. The first present, non-empty candidate wins.
type FieldCandidates map[string][]string

// Mappings is the per-scheme field mapping configuration. It is built once at
// startup and never mutated, so it is safe for unlimited concurrent readers.
type Mappings struct {
	schemes  map[Scheme]FieldCandidates
	fallback FieldCandidates
}

// DefaultMappings returns the authoritative mapping configuration,
// reconciling the parameter conventions of every supported network into one
// table per scheme. Fields a scheme does not map, and schemes not present at
// all, resolve through the generic fallback list.
func DefaultMappings() *Mappings {
	return &Mappings{
		schemes: map[Scheme]FieldCandidates{
			Cpamatica: {
				FieldClickID:       {"click_id", "sub1"},
				FieldOfferID:       {"offer_id"},
				FieldGoal:          {"goal", "goal_id", "goal_name"},
				FieldPayout:        {"payout", "amount"},
				FieldCurrency:      {"currency"},
				FieldGeo:           {"country", "geo"},
				FieldGclid:         {"gclid"},
				FieldTransactionID: {"transaction_id", "txid"},
				FieldStatus:        {"status", "status_name"},
				FieldIP:            {"ip", "session_ip"},
			},
			Vortex: {
				FieldClickID:       {"sub1", "click_id"},
				FieldOfferID:       {"offerid", "offer_id"},
				FieldGoal:          {"goal", "goal_id"},
				FieldPayout:        {"payout", "amount"},
				FieldCurrency:      {"currency"},
				FieldGeo:           {"geo", "country"},
				FieldGclid:         {"gclid", "sub2"},
				FieldTransactionID: {"transaction_id", "tid"},
				FieldStatus:        {"status"},
				FieldIP:            {"ip"},
			},
			Affilitex: {
				FieldClickID:       {"click_id", "click_id2"},
				FieldOfferID:       {"offer_id", "token_2"},
				FieldGoal:          {"goal"},
				FieldPayout:        {"payout", "amount"},
				FieldCurrency:      {"currency"},
				FieldGeo:           {"geo", "country"},
				FieldGclid:         {"gclid", "click_id3"},
				FieldTransactionID: {"token_1", "transaction_id"},
				FieldStatus:        {"status"},
				FieldIP:            {"ip"},
			},
			MyLead: {
				FieldClickID:       {"ml_sub1", "click_id"},
				FieldOfferID:       {"ml_sub3", "offer_id"},
				FieldGoal:          {"goal"},
				FieldPayout:        {"payout", "amount"},
				FieldCurrency:      {"currency"},
				FieldGeo:           {"geo", "country"},
				FieldGclid:         {"ml_sub2", "gclid"},
				FieldTransactionID: {"transaction_id"},
				FieldStatus:        {"status"},
				FieldIP:            {"ip"},
			},
			AffSub: {
				FieldClickID:       {"aff_sub1", "click_id"},
				FieldOfferID:       {"offer_id", "aff_sub3"},
				FieldGoal:          {"goal", "goal_id"},
				FieldPayout:        {"payout", "amount"},
				FieldCurrency:      {"currency"},
				FieldGeo:           {"geo", "country"},
				FieldGclid:         {"aff_sub2", "gclid"},
				FieldTransactionID: {"transaction_id"},
				FieldStatus:        {"status"},
				FieldIP:            {"ip"},
			},
		},
		fallback: FieldCandidates{
			FieldClickID:       {"click_id", "sub1", "aff_sub1", "ml_sub1"},
			FieldOfferID:       {"offer_id", "offerid"},
			FieldGoal:          {"goal", "goal_id", "goal_name"},
			FieldPayout:        {"payout", "amount"},
			FieldCurrency:      {"currency"},
			FieldGeo:           {"geo", "country"},
			FieldGclid:         {"gclid", "aff_sub2", "ml_sub2"},
			FieldTransactionID: {"transaction_id", "txid", "tid"},
			FieldStatus:        {"status", "status_name"},
			FieldIP:            {"ip", "session_ip"},
		},
	}
}

// Candidates returns the candidate parameter names for a canonical field
// under the given scheme. Unmapped schemes and unmapped fields fall back to
// the generic candidate list.
func (m *Mappings) Candidates(s Scheme, field string) []string {
	if fields, ok := m.schemes[s]; ok {
		if candidates, ok := fields[field]; ok {
			return candidates
		}
	}
	return m.fallback[field]
}

// ClickIDCandidates returns the candidate names probed when strict mode
// requires a click id to be present before anything is persisted.
func (m *Mappings) ClickIDCandidates(s Scheme) []string {
	return m.Candidates(s, FieldClickID)
}
