// Package merge combines a cached generation result with a freshly
// regenerated one so that refreshing one module keeps the other intact.
package merge

import (
	"encoding/json"

	"github.com/terra-clan/practice-engine/internal/models"
)

// Modules that can be regenerated on their own
const (
	ModuleContent = "content"
	ModuleCode    = "code"
)

// IsModule reports whether name is a refreshable module
func IsModule(name string) bool {
	return name == ModuleContent || name == ModuleCode
}

// Merge returns previous with the named module taken from next.
// Any other module, or a side without data, means next replaces previous.
// Neither input is modified.
func Merge(previous, next *models.GenerationResult, module string) *models.GenerationResult {
	if !IsModule(module) || previous == nil || next == nil || previous.Data == nil || next.Data == nil {
		return replace(previous, next)
	}

	prev, nxt := previous.Data, next.Data
	data := cloneData(prev)

	switch module {
	case ModuleContent:
		data.Title = pick(nxt.Title, prev.Title)
		data.Subtitle = pick(nxt.Subtitle, prev.Subtitle)
		data.Content = pick(nxt.Content, prev.Content)
		// an explicit empty list clears the tags, a missing one keeps them
		if nxt.Tags != nil {
			data.Tags = append([]string{}, nxt.Tags...)
		}
		data.Localized = mergeLocalized(prev.Localized, nxt.Localized)
	case ModuleCode:
		data.Code = pick(nxt.Code, prev.Code)
	}

	return &models.GenerationResult{
		Status: pick(next.Status, previous.Status),
		Data:   data,
		Extra:  mergeExtra(previous.Extra, next.Extra),
	}
}

func replace(previous, next *models.GenerationResult) *models.GenerationResult {
	if next != nil {
		return next
	}
	return previous
}

func pick(next, previous string) string {
	if next != "" {
		return next
	}
	return previous
}

// mergeLocalized overlays next onto previous per language and per field
func mergeLocalized(previous, next models.Localized) models.Localized {
	if previous == nil && next == nil {
		return nil
	}
	out := make(models.Localized, len(previous)+len(next))
	for lang, fields := range previous {
		bucket := make(map[string]string, len(fields))
		for k, v := range fields {
			bucket[k] = v
		}
		out[lang] = bucket
	}
	for lang, fields := range next {
		bucket, ok := out[lang]
		if !ok {
			bucket = make(map[string]string, len(fields))
			out[lang] = bucket
		}
		for k, v := range fields {
			bucket[k] = v
		}
	}
	return out
}

func mergeExtra(previous, next map[string]json.RawMessage) map[string]json.RawMessage {
	if len(previous) == 0 && len(next) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(previous)+len(next))
	for k, v := range previous {
		out[k] = v
	}
	for k, v := range next {
		out[k] = v
	}
	return out
}

func cloneData(d *models.GenerationData) *models.GenerationData {
	c := *d
	if d.Tags != nil {
		c.Tags = append([]string(nil), d.Tags...)
	}
	c.Localized = mergeLocalized(d.Localized, nil)
	return &c
}
