package model_test

import (
	"testing"

	"jobmate/coach-service/internal/model"
)

// ── ParseDemandLevel ──────────────────────────────────────────────────────

func TestParseDemandLevel_ValidValues(t *testing.T) {
	for _, s := range []string{"LOW", "MEDIUM", "HIGH"} {
		got, err := model.ParseDemandLevel(s)
		if err != nil {
			t.Errorf("ParseDemandLevel(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseDemandLevel(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseDemandLevel_RejectsLooseSpelling(t *testing.T) {
	for _, s := range []string{"", "high", "High", "VERY HIGH"} {
		if _, err := model.ParseDemandLevel(s); err == nil {
			t.Errorf("ParseDemandLevel(%q) expected error, got nil", s)
		}
	}
}

// ── ParseMarketOutlook ────────────────────────────────────────────────────

func TestParseMarketOutlook_ValidValues(t *testing.T) {
	for _, s := range []string{"POSITIVE", "NEUTRAL", "NEGATIVE"} {
		got, err := model.ParseMarketOutlook(s)
		if err != nil {
			t.Errorf("ParseMarketOutlook(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseMarketOutlook(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseMarketOutlook_InvalidValue(t *testing.T) {
	if _, err := model.ParseMarketOutlook("bullish"); err == nil {
		t.Error("ParseMarketOutlook(\"bullish\") expected error, got nil")
	}
}

// ── IsOnboarded ───────────────────────────────────────────────────────────

func TestIsOnboarded(t *testing.T) {
	empty, tech := "", "tech"
	cases := []struct {
		name string
		user *model.User
		want bool
	}{
		{"nil user", nil, false},
		{"no industry", &model.User{}, false},
		{"empty industry", &model.User{Industry: &empty}, false},
		{"industry set", &model.User{Industry: &tech}, true},
	}
	for _, tc := range cases {
		if got := tc.user.IsOnboarded(); got != tc.want {
			t.Errorf("%s: IsOnboarded() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
