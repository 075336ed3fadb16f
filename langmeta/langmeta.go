// Package langmeta provides a registry of Paradox engine language
// codes with display and native names, used for prompt wording and as
// an offline fallback for native names in the languages registry.
package langmeta

import "strings"

// Meta describes one language.
type Meta struct {
	// Name is the English display name.
	Name string
	// Native is the language's name in its own tongue, as it appears
	// in the game's languages.yml.
	Native string
}

// Registry contains the languages Victoria 3 ships with plus common
// community translation targets. Keys are engine codes (the part after
// the "l_" prefix).
var Registry = map[string]Meta{
	// Shipped languages.
	"english":      {Name: "English", Native: "English"},
	"braz_por":     {Name: "Brazilian Portuguese", Native: "Português do Brasil"},
	"french":       {Name: "French", Native: "Français"},
	"german":       {Name: "German", Native: "Deutsch"},
	"polish":       {Name: "Polish", Native: "Polski"},
	"russian":      {Name: "Russian", Native: "Русский"},
	"spanish":      {Name: "Spanish", Native: "Español"},
	"japanese":     {Name: "Japanese", Native: "日本語"},
	"simp_chinese": {Name: "Simplified Chinese", Native: "中文"},
	"korean":       {Name: "Korean", Native: "한국어"},
	"turkish":      {Name: "Turkish", Native: "Türkçe"},

	// Community targets.
	"czech":      {Name: "Czech", Native: "Čeština"},
	"danish":     {Name: "Danish", Native: "Dansk"},
	"dutch":      {Name: "Dutch", Native: "Nederlands"},
	"finnish":    {Name: "Finnish", Native: "Suomi"},
	"greek":      {Name: "Greek", Native: "Ελληνικά"},
	"hungarian":  {Name: "Hungarian", Native: "Magyar"},
	"italian":    {Name: "Italian", Native: "Italiano"},
	"norwegian":  {Name: "Norwegian", Native: "Norsk"},
	"portuguese": {Name: "Portuguese", Native: "Português"},
	"romanian":   {Name: "Romanian", Native: "Română"},
	"swedish":    {Name: "Swedish", Native: "Svenska"},
	"ukrainian":  {Name: "Ukrainian", Native: "Українська"},
	"vietnamese": {Name: "Vietnamese", Native: "Tiếng Việt"},
}

// Canonical normalizes a language code: trims whitespace, lowercases,
// and drops an "l_" prefix if the caller passed the header form.
func Canonical(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	return strings.TrimPrefix(code, "l_")
}

// Resolve returns best-effort metadata for code. Unknown codes get
// the code itself as both names so callers always have something to
// show.
func Resolve(code string) Meta {
	c := Canonical(code)
	if m, ok := Registry[c]; ok {
		return m
	}
	return Meta{Name: c, Native: c}
}

// Known reports whether code is in the registry.
func Known(code string) bool {
	_, ok := Registry[Canonical(code)]
	return ok
}
