package bilingual

import (
	"strings"
	"unicode/utf8"
)

// Classifier scores text by script and judges whether it is corrupted.
// Resolve only depends on this interface so thresholds can be tuned
// independently.
type Classifier interface {
	// CountScripts returns the number of CJK ideographs and ASCII letters in s
	CountScripts(s string) (cjk, latin int)
	// IsGarbled reports whether s looks like broken decoding output
	IsGarbled(s string) bool
}

// DefaultClassifier is the heuristic classifier used by Resolve
type DefaultClassifier struct {
	// Markers are substrings that only appear in corrupted text
	Markers []string
	// MinReplacements is how many replacement-like runes mark text as garbled
	MinReplacements int
	// MinNoisy is how many Latin-1 supplement letters mark CJK-free text as garbled
	MinNoisy int
}

// NewDefaultClassifier returns the classifier with the stock thresholds
func NewDefaultClassifier() *DefaultClassifier {
	return &DefaultClassifier{
		Markers: []string{
			"锟斤拷", // U+FFFD round-tripped through GBK
			"ï¿½",  // U+FFFD read as Latin-1
			"烫烫烫",
		},
		MinReplacements: 2,
		MinNoisy:        3,
	}
}

// IsCJK reports whether r is in the CJK Unified Ideographs block
func IsCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

func isLatin(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// isNoisy matches Latin-1 supplement letters typical of UTF-8 read as Latin-1
func isNoisy(r rune) bool {
	return r >= 0x00C0 && r <= 0x00FF
}

func isReplacementLike(r rune) bool {
	return r == utf8.RuneError || r == '￼' || r == '□'
}

// CountScripts counts CJK ideographs and ASCII letters
func (c *DefaultClassifier) CountScripts(s string) (cjk, latin int) {
	for _, r := range s {
		switch {
		case IsCJK(r):
			cjk++
		case isLatin(r):
			latin++
		}
	}
	return cjk, latin
}

// IsGarbled applies the marker, replacement and noise checks
func (c *DefaultClassifier) IsGarbled(s string) bool {
	if strings.ContainsRune(s, utf8.RuneError) {
		return true
	}
	for _, m := range c.Markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}

	var replacements, noisy, cjk int
	for _, r := range s {
		switch {
		case isReplacementLike(r):
			replacements++
		case IsCJK(r):
			cjk++
		case isNoisy(r):
			noisy++
		}
	}
	if c.MinReplacements > 0 && replacements >= c.MinReplacements {
		return true
	}
	return cjk == 0 && c.MinNoisy > 0 && noisy >= c.MinNoisy
}
