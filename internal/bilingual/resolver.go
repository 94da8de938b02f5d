// Package bilingual extracts a single-language view from text that carries
// both a Chinese and an English version.
package bilingual

import (
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/terra-clan/practice-engine/internal/models"
)

// Supported languages
const (
	LangZh = "zh"
	LangEn = "en"
)

var delimiter = regexp.MustCompile(`(?m)^[ \t]*-{3,}[ \t]*\r?$`)

// Resolver picks the requested language out of bilingual text
type Resolver struct {
	classifier Classifier
}

// NewResolver creates a resolver; a nil classifier means the default one
func NewResolver(c Classifier) *Resolver {
	if c == nil {
		c = NewDefaultClassifier()
	}
	return &Resolver{classifier: c}
}

var defaultResolver = NewResolver(nil)

// Resolve uses the default classifier. See Resolver.Resolve.
func Resolve(text, lang string) string {
	return defaultResolver.Resolve(text, lang)
}

// NormalizeLang maps zh, zh-CN, zh_Hans... to LangZh and everything else to LangEn
func NormalizeLang(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if l == LangZh || strings.HasPrefix(l, "zh-") || strings.HasPrefix(l, "zh_") {
		return LangZh
	}
	return LangEn
}

// Resolve returns the best view of text for lang. It never fails: empty
// input gives empty output and unsplittable text is returned whole.
func (r *Resolver) Resolve(text, lang string) string {
	if text == "" {
		return ""
	}

	text = r.Repair(text)

	zh, en, ok := r.Split(text)
	if !ok {
		return text
	}

	if NormalizeLang(lang) == LangZh && !r.classifier.IsGarbled(zh) {
		return zh
	}
	return en
}

// Repair undoes UTF-8 bytes that were decoded as Latin-1. The repaired text
// is kept only when it has strictly more CJK ideographs than the input.
func (r *Resolver) Repair(text string) string {
	raw, err := charmap.ISO8859_1.NewEncoder().String(text)
	if err != nil {
		// a rune above U+00FF cannot come from a single-byte decode
		return text
	}
	repaired := strings.ToValidUTF8(raw, "�")

	before, _ := r.classifier.CountScripts(text)
	after, _ := r.classifier.CountScripts(repaired)
	if after > before {
		return repaired
	}
	return text
}

// Split separates text into its Chinese and English halves, first by an
// explicit dash delimiter line and then by classifying each line.
func (r *Resolver) Split(text string) (zh, en string, ok bool) {
	if parts := delimiter.Split(text, -1); len(parts) == 2 {
		zh, en = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if zh != "" && en != "" {
			return zh, en, true
		}
	}

	var zhLines, enLines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cjk, latin := r.classifier.CountScripts(line)
		switch {
		case cjk > 0:
			zhLines = append(zhLines, line)
		case latin > 0:
			enLines = append(enLines, line)
		}
	}
	if len(zhLines) == 0 || len(enLines) == 0 {
		return "", "", false
	}
	return strings.Join(zhLines, "\n"), strings.Join(enLines, "\n"), true
}

// LocalizedField returns data.Localized[lang][field] when it is set and
// falls back to resolving the combined field.
func LocalizedField(data *models.GenerationData, field, lang string) string {
	if data == nil {
		return ""
	}
	lang = NormalizeLang(lang)
	if v := strings.TrimSpace(data.Localized[lang][field]); v != "" {
		return data.Localized[lang][field]
	}

	var combined string
	switch field {
	case "title":
		combined = data.Title
	case "subtitle":
		combined = data.Subtitle
	case "content":
		combined = data.Content
	case "code":
		return data.Code
	}
	return Resolve(combined, lang)
}
