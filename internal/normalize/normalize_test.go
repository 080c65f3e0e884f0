package normalize

import "testing"

func TestResolve_FirstNonEmptyWins(t *testing.T) {
	candidates := []string{"k1", "k2", "k3"}

	tests := []struct {
		name   string
		params map[string]string
		want   string
	}{
		{"first present", map[string]string{"k1": "a", "k2": "b", "k3": "c"}, "a"},
		{"first absent", map[string]string{"k2": "b", "k3": "c"}, "b"},
		{"first empty", map[string]string{"k1": "", "k2": "b"}, "b"},
		{"first whitespace only", map[string]string{"k1": "   ", "k2": "b"}, "b"},
		{"only last present", map[string]string{"k3": "c"}, "c"},
		{"all empty", map[string]string{"k1": "", "k2": " ", "k3": ""}, ""},
		{"none present", map[string]string{"other": "x"}, ""},
		{"value trimmed", map[string]string{"k1": "  a  "}, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.params, candidates); got != tt.want {
				t.Errorf("Resolve(%v) = %q, want %q", tt.params, got, tt.want)
			}
		})
	}
}

func TestResolve_CaseInsensitiveKeys(t *testing.T) {
	params := map[string]string{"Click_ID": "abc123"}

	if got := Resolve(params, []string{"click_id"}); got != "abc123" {
		t.Errorf("Expected abc123, got %q", got)
	}
}

func TestResolve_EmptyInputs(t *testing.T) {
	if got := Resolve(nil, []string{"k1"}); got != "" {
		t.Errorf("Expected empty result for nil params, got %q", got)
	}
	if got := Resolve(map[string]string{"k1": "v"}, nil); got != "" {
		t.Errorf("Expected empty result for nil candidates, got %q", got)
	}
}

func TestPayout(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12,34", "12.34"},
		{"12.34", "12.34"},
		{"10,50", "10.50"},
		{"5", "5"},
		{" 7.25 ", "7.25"},
		{"abc", ""},
		{"", ""},
		{"   ", ""},
		{"-5.00", ""},
		{"1,234.56", ""},
		{"1e3", ""},
		{"12.", ""},
		{".5", ""},
	}

	for _, tt := range tests {
		if got := Payout(tt.in); got != tt.want {
			t.Errorf("Payout(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPayout_IdempotentOnCleanInput(t *testing.T) {
	clean := Payout("12,34")
	if got := Payout(clean); got != clean {
		t.Errorf("Payout not idempotent: %q -> %q", clean, got)
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"no", "NO"},
		{"usd", "USD"},
		{" eur ", "EUR"},
		{"NO", "NO"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := Code(tt.in); got != tt.want {
			t.Errorf("Code(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCode_Idempotent(t *testing.T) {
	inputs := []string{"no", "USD", " mixed Case ", "", "x"}
	for _, in := range inputs {
		once := Code(in)
		if twice := Code(once); twice != once {
			t.Errorf("Code not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}
