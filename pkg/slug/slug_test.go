package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Acme Corp", "acme-corp"},
		{"underscores", "acme_corp_inc", "acme-corp-inc"},
		{"mixed separators", "Acme \t Corp_Ltd", "acme-corp-ltd"},
		{"special chars stripped", "Acme & Co. (Brasil)!", "acme-co-brasil"},
		{"collapses hyphens", "acme---corp", "acme-corp"},
		{"trims hyphens", "-acme corp-", "acme-corp"},
		{"digits kept", "Area 51 Labs", "area-51-labs"},
		{"empty", "", ""},
		{"fully invalid", "!!!", ""},
		{"already slug", "acme-corp", "acme-corp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Make(tt.input); got != tt.want {
				t.Errorf("Make(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMakeIdempotent(t *testing.T) {
	inputs := []string{"Acme Corp", "  weird__Input--42 ", "Çompany Ñame", "ALL CAPS INC"}
	for _, in := range inputs {
		once := Make(in)
		twice := Make(once)
		if once != twice {
			t.Errorf("Make not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestMakeCharset(t *testing.T) {
	out := Make("So/me *Str@ange# Näme_42")
	for _, r := range out {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
		if !ok {
			t.Fatalf("Make produced invalid character %q in %q", r, out)
		}
	}
	if len(out) > 0 && (out[0] == '-' || out[len(out)-1] == '-') {
		t.Fatalf("Make produced leading/trailing hyphen: %q", out)
	}
}
