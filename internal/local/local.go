package local

import (
	"fmt"
	"strings"
)

type Language string

const (
	Fr  = Language("fr")
	Eng = Language("en")
)

// ParseLanguage normaliza el código de idioma; cualquier valor desconocido cae en francés.
func ParseLanguage(s string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case Eng:
		return Eng
	default:
		return Fr
	}
}

type Localization struct {
	language Language
	text     string
}

// TextSet agrupa un texto por defecto y sus traducciones.
type TextSet struct {
	Default          string
	translationsText map[Language]string
}

func NewTrans(language Language, text string) Localization {
	return Localization{
		language: language,
		text:     text,
	}
}

func NewSet(defaultText string, localizations ...Localization) TextSet {
	set := TextSet{
		Default:          defaultText,
		translationsText: make(map[Language]string),
	}
	for _, localization := range localizations {
		set.translationsText[localization.language] = localization.text
	}
	return set
}

func (l TextSet) Text(language Language) string {
	if text, ok := l.translationsText[language]; ok {
		return text
	}
	return l.Default
}

func (l TextSet) Format(language Language, a ...any) string {
	return fmt.Sprintf(l.Text(language), a...)
}
