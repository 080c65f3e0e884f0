package scheme

import "strings"

// Scheme identifies the URL-parameter naming convention of an affiliate
// network. The tag is persisted verbatim on every stored postback.
type Scheme string

const (
	Vortex    Scheme = "vortex"
	Cpamatica Scheme = "cpamatica"
	Affilitex Scheme = "affilitex"
	MyLead    Scheme = "mylead"
	AffSub    Scheme = "aff_sub"
	Unknown   Scheme = "unknown"
)

// detectionRule maps a set of distinguishing parameter names to a scheme.
// Rules are evaluated in order; parameter sets overlap across networks, so
// the first match wins.
type detectionRule struct {
	scheme Scheme
	keys   []string
}

var detectionRules = []detectionRule{
	{MyLead, []string{"ml_sub1", "ml_sub2", "ml_sub3", "ml_sub4", "ml_sub5"}},
	{Affilitex, []string{"click_id2", "click_id3", "click_id4", "click_id5", "token_1", "token_2"}},
	{AffSub, []string{"aff_sub1", "aff_sub2", "aff_sub3", "aff_sub4", "aff_sub5"}},
	{Vortex, []string{"offerid", "affid", "sub1"}},
	{Cpamatica, []string{"offer_id", "transaction_id", "status_name"}},
}

// Detect classifies a merged parameter set into a partner scheme.
//
// An explicit non-empty "partner" parameter is trusted verbatim (trimmed,
// lower-cased) and bypasses detection entirely, even when the parameter set
// also matches another scheme's distinguishing keys. Otherwise the ordered
// presence rules above are applied against lower-cased parameter names;
// requests matching no rule degrade to Unknown rather than being rejected.
func Detect(params map[string]string) Scheme {
	// Only key presence matters here, not values: a network that sends
	// sub1= with an empty value still identified itself by sending sub1.
	present := make(map[string]bool, len(params))
	for name, value := range params {
		name = strings.ToLower(name)
		present[name] = true
		if name == "partner" {
			if explicit := strings.ToLower(strings.TrimSpace(value)); explicit != "" {
				return Scheme(explicit)
			}
		}
	}

	for _, rule := range detectionRules {
		for _, key := range rule.keys {
			if present[key] {
				return rule.scheme
			}
		}
	}

	return Unknown
}
