package bilingual

import (
	"strings"
	"testing"

	"github.com/terra-clan/practice-engine/internal/models"
)

// latin1Mojibake turns every UTF-8 byte of s into the rune with that value,
// which is what a wrong Latin-1 decode produces.
func latin1Mojibake(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		b.WriteRune(rune(s[i]))
	}
	return b.String()
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		text string
		lang string
		want string
	}{
		{"delimiter zh", "你好\n\n---\n\nHello", "zh", "你好"},
		{"delimiter en", "你好\n\n---\n\nHello", "en", "Hello"},
		{"no split zh", "Hello only", "zh", "Hello only"},
		{"no split en", "Hello only", "en", "Hello only"},
		{"garbled zh falls back", "�invalid\n\n---\n\nHello", "zh", "Hello"},
		{"empty", "", "zh", ""},
		{"long delimiter with spaces", "题解\n  -----  \nSolution", "zh", "题解"},
		{"crlf delimiter", "题解\r\n---\r\nSolution", "en", "Solution"},
		{"zh-CN alias", "你好\n---\nHello", "zh-CN", "你好"},
		{"unknown lang is english", "你好\n---\nHello", "fr", "Hello"},
		{"line classification zh", "第一行\nFirst line\n第二行\nSecond line", "zh", "第一行\n第二行"},
		{"line classification en", "第一行\nFirst line\n\n第二行 with words\nSecond line", "en", "First line\nSecond line"},
		{"only chinese", "只有中文", "en", "只有中文"},
		{"three halves uses line classification", "中文\n---\nEnglish\n---\nMore", "en", "English\nMore"},
		{"empty half", "中文\n---\n", "en", "中文\n---\n"},
		{"corrupted marker", "锟斤拷锟斤拷\n---\nHello", "zh", "Hello"},
		{"noisy latin1 zh side", "Ã©Ã¨Ã \n---\nHello", "zh", "Hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.text, tt.lang); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.text, tt.lang, got, tt.want)
			}
		})
	}
}

func TestResolveRepairsMojibake(t *testing.T) {
	broken := latin1Mojibake("你好\n\n---\n\nHello")

	if got := Resolve(broken, "zh"); got != "你好" {
		t.Errorf("expected repaired '你好', got %q", got)
	}
	if got := Resolve(broken, "en"); got != "Hello" {
		t.Errorf("expected 'Hello', got %q", got)
	}
}

func TestRepairKeepsCorrectText(t *testing.T) {
	r := NewResolver(nil)

	inputs := []string{
		"Hello world",
		"你好世界",
		"café crème brûlée", // genuine Latin-1, re-decoding yields no CJK
		"",
	}
	for _, in := range inputs {
		if got := r.Repair(in); got != in {
			t.Errorf("Repair(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestResolveIsTotal(t *testing.T) {
	inputs := []string{
		"---",
		"\n\n---\n\n",
		"----\n----",
		"\xff\xfe",
		strings.Repeat("-", 100),
		"�",
		"\r\n\r\n",
	}
	for _, in := range inputs {
		for _, lang := range []string{"zh", "en", ""} {
			func() {
				defer func() {
					if r := recover(); r != nil {
						t.Fatalf("Resolve(%q, %q) panicked: %v", in, lang, r)
					}
				}()
				_ = Resolve(in, lang)
			}()
		}
	}
}

func TestDefaultClassifier(t *testing.T) {
	c := NewDefaultClassifier()

	cjk, latin := c.CountScripts("二分查找 binary search")
	if cjk != 4 || latin != 12 {
		t.Errorf("expected (4, 12), got (%d, %d)", cjk, latin)
	}

	tests := []struct {
		text string
		want bool
	}{
		{"正常的中文", false},
		{"plain english", false},
		{"含有�的文本", true},
		{"□□ 方块", true},
		{"□ 一个方块", false},
		{"Ã¤Â½Â", true},
		{"中文 Ã¤Â½Â", false},
		{"ÃÃ", false},
	}
	for _, tt := range tests {
		if got := c.IsGarbled(tt.text); got != tt.want {
			t.Errorf("IsGarbled(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

type strictClassifier struct{ *DefaultClassifier }

func (s strictClassifier) IsGarbled(string) bool { return true }

func TestResolverUsesClassifier(t *testing.T) {
	r := NewResolver(strictClassifier{NewDefaultClassifier()})
	if got := r.Resolve("你好\n---\nHello", "zh"); got != "Hello" {
		t.Errorf("expected english fallback with strict classifier, got %q", got)
	}
}

func TestLocalizedField(t *testing.T) {
	data := &models.GenerationData{
		Title:   "两数之和\n\n---\n\nTwo Sum",
		Content: "中文正文\n\n---\n\nEnglish body",
		Code:    "def f(): pass",
		Localized: models.Localized{
			"zh": {"title": "两数之和（本地化）", "content": "   "},
		},
	}

	if got := LocalizedField(data, "title", "zh"); got != "两数之和（本地化）" {
		t.Errorf("expected localized title, got %q", got)
	}
	if got := LocalizedField(data, "content", "zh"); got != "中文正文" {
		t.Errorf("blank localized value should fall back, got %q", got)
	}
	if got := LocalizedField(data, "title", "en"); got != "Two Sum" {
		t.Errorf("expected resolved english title, got %q", got)
	}
	if got := LocalizedField(data, "code", "zh"); got != "def f(): pass" {
		t.Errorf("expected code untouched, got %q", got)
	}
	if got := LocalizedField(nil, "title", "zh"); got != "" {
		t.Errorf("expected empty for nil data, got %q", got)
	}
}
