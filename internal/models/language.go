package models

import "golang.org/x/text/language"

// Language selects one of the two fixed scripts.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
)

var (
	supported = []Language{LanguageEnglish, LanguageFrench}
	matcher   = language.NewMatcher([]language.Tag{language.English, language.French})
)

// ParseLanguage matches a BCP 47 string (e.g. "fr-FR") against the supported
// languages. Unknown or empty input yields English.
func ParseLanguage(s string) Language {
	_, idx := language.MatchStrings(matcher, s)
	return supported[idx]
}

// Name is the display name of the language in its own script.
func (l Language) Name() string {
	if l == LanguageFrench {
		return "Français"
	}
	return "English"
}

// Languages lists the supported languages in menu order.
func Languages() []Language {
	return append([]Language(nil), supported...)
}
