package scheme

import "testing"

func TestDetect_ExplicitPartnerWins(t *testing.T) {
	// Parameter set matches cpamatica's distinguishing keys, but the
	// explicit partner parameter must bypass detection entirely.
	params := map[string]string{
		"partner":        " MyLead ",
		"offer_id":       "55",
		"transaction_id": "tx1",
	}

	if got := Detect(params); got != MyLead {
		t.Errorf("Expected %s, got %s", MyLead, got)
	}
}

func TestDetect_ExplicitPartnerUnrecognized(t *testing.T) {
	params := map[string]string{"partner": "SomeNetwork"}

	if got := Detect(params); got != Scheme("somenetwork") {
		t.Errorf("Expected somenetwork, got %s", got)
	}
}

func TestDetect_EmptyExplicitPartnerIgnored(t *testing.T) {
	params := map[string]string{
		"partner": "  ",
		"offerid": "99",
	}

	if got := Detect(params); got != Vortex {
		t.Errorf("Expected %s, got %s", Vortex, got)
	}
}

func TestDetect_Schemes(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
		want   Scheme
	}{
		{"mylead via ml_sub1", map[string]string{"ml_sub1": "m1", "ml_sub2": "g1"}, MyLead},
		{"affilitex via click_id2", map[string]string{"click_id2": "c2"}, Affilitex},
		{"affilitex via token_1", map[string]string{"token_1": "t1"}, Affilitex},
		{"aff_sub via aff_sub1", map[string]string{"aff_sub1": "a1"}, AffSub},
		{"vortex via offerid", map[string]string{"offerid": "99", "affid": "aff1"}, Vortex},
		{"vortex via sub1", map[string]string{"sub1": "click1"}, Vortex},
		{"cpamatica via status_name", map[string]string{"status_name": "approved"}, Cpamatica},
		{"cpamatica via offer_id", map[string]string{"offer_id": "55", "transaction_id": "tx1"}, Cpamatica},
		{"unknown when nothing matches", map[string]string{"foo": "bar"}, Unknown},
		{"unknown on empty set", map[string]string{}, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.params); got != tt.want {
				t.Errorf("Detect(%v) = %s, want %s", tt.params, got, tt.want)
			}
		})
	}
}

func TestDetect_RuleOrderBreaksOverlap(t *testing.T) {
	// sub1 alone would match vortex, but ml_sub1 is checked first.
	params := map[string]string{
		"ml_sub1": "m1",
		"sub1":    "click1",
	}

	if got := Detect(params); got != MyLead {
		t.Errorf("Expected %s, got %s", MyLead, got)
	}
}

func TestDetect_KeyPresenceIsCaseInsensitive(t *testing.T) {
	params := map[string]string{"SUB1": "click1"}

	if got := Detect(params); got != Vortex {
		t.Errorf("Expected %s, got %s", Vortex, got)
	}
}

func TestDetect_EmptyValueStillCountsAsPresence(t *testing.T) {
	// Only key presence matters for detection.
	params := map[string]string{"offerid": ""}

	if got := Detect(params); got != Vortex {
		t.Errorf("Expected %s, got %s", Vortex, got)
	}
}

func TestDetect_Deterministic(t *testing.T) {
	params := map[string]string{
		"offer_id": "55",
		"click_id": "abc",
	}

	first := Detect(params)
	for i := 0; i < 20; i++ {
		if got := Detect(params); got != first {
			t.Fatalf("Detection not deterministic: got %s then %s", first, got)
		}
	}
}

func TestMappings_CandidatesFallback(t *testing.T) {
	m := DefaultMappings()

	// Unknown scheme resolves through the generic fallback list.
	candidates := m.Candidates(Unknown, FieldClickID)
	if len(candidates) == 0 {
		t.Fatal("Expected fallback candidates for unknown scheme")
	}
	if candidates[0] != "click_id" {
		t.Errorf("Expected click_id first in fallback, got %s", candidates[0])
	}

	// Explicit partner tags outside the known set behave the same way.
	if got := m.Candidates(Scheme("somenetwork"), FieldPayout); len(got) == 0 {
		t.Error("Expected fallback candidates for unrecognized scheme")
	}
}

func TestMappings_EveryFieldCoveredForEveryScheme(t *testing.T) {
	m := DefaultMappings()
	schemes := []Scheme{Vortex, Cpamatica, Affilitex, MyLead, AffSub, Unknown}

	for _, s := range schemes {
		for _, field := range Fields {
			if len(m.Candidates(s, field)) == 0 {
				t.Errorf("No candidates for scheme %s field %s", s, field)
			}
		}
	}
}
