package config

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// ParseLocale parses a BCP 47 or POSIX locale ("de", "pt_BR.UTF-8").
// An empty value detects the system locale; invalid values fall back to English.
func ParseLocale(locale string) language.Tag {
	if locale == "" {
		return detectSystemLanguage()
	}
	if tag, ok := parsePosixLocale(locale); ok {
		return tag
	}
	return language.English
}

// LocaleTag returns the language tag used to collate report groups
func (c *ViewerConfig) LocaleTag() language.Tag {
	return ParseLocale(c.Locale)
}

func parsePosixLocale(val string) (language.Tag, bool) {
	langPart := strings.Split(val, ".")[0]            // Remove encoding
	langPart = strings.Replace(langPart, "_", "-", 1) // Convert to BCP 47 format
	if langPart == "C" || langPart == "POSIX" {
		return language.English, true
	}
	tag, err := language.Parse(langPart)
	if err != nil {
		tag, err = language.Parse(strings.ToLower(langPart))
	}
	return tag, err == nil
}

// detectSystemLanguage attempts to detect the system language from environment variables
func detectSystemLanguage() language.Tag {
	for _, envVar := range []string{"LC_ALL", "LC_COLLATE", "LANG", "LANGUAGE"} {
		if val := os.Getenv(envVar); val != "" {
			if tag, ok := parsePosixLocale(val); ok {
				return tag
			}
		}
	}
	return language.English
}
