package config

import (
	"testing"

	"golang.org/x/text/language"
)

func TestParseLocale(t *testing.T) {
	tests := []struct {
		input string
		want  language.Tag
	}{
		{"de", language.German},
		{"pt_BR.UTF-8", language.BrazilianPortuguese},
		{"C", language.English},
		{"!!", language.English},
	}
	for _, tt := range tests {
		if got := ParseLocale(tt.input); got != tt.want {
			t.Errorf("ParseLocale(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseLocaleDetectsSystem(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_COLLATE", "sv_SE.UTF-8")
	if got := ParseLocale(""); got != language.MustParse("sv-SE") {
		t.Errorf("expected sv-SE from LC_COLLATE, got %v", got)
	}

	cfg := &ViewerConfig{Locale: "fr"}
	if got := cfg.LocaleTag(); got != language.French {
		t.Errorf("expected fr, got %v", got)
	}
}
