package models

import "encoding/json"

// Localized maps a language code to field name to text
type Localized map[string]map[string]string

// GenerationData is the payload produced by the generate task
type GenerationData struct {
	Title     string    `json:"title,omitempty"`
	Subtitle  string    `json:"subtitle,omitempty"`
	Content   string    `json:"content,omitempty"`
	Code      string    `json:"code,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Localized Localized `json:"localized,omitempty"`
}

// GenerationResult is a cached generation envelope.
// Extra holds any top-level fields other than status and data so they
// survive a read-merge-write cycle.
type GenerationResult struct {
	Status string                     `json:"-"`
	Data   *GenerationData            `json:"-"`
	Extra  map[string]json.RawMessage `json:"-"`
}

// MarshalJSON flattens Extra next to status and data
func (g GenerationResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(g.Extra)+2)
	for k, v := range g.Extra {
		out[k] = v
	}
	if g.Status != "" {
		out["status"] = g.Status
	}
	if g.Data != nil {
		out["data"] = g.Data
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits status and data from the remaining top-level keys
func (g *GenerationResult) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*g = GenerationResult{}
	if v, ok := raw["status"]; ok {
		if err := json.Unmarshal(v, &g.Status); err != nil {
			return err
		}
		delete(raw, "status")
	}
	if v, ok := raw["data"]; ok {
		if string(v) != "null" {
			var data GenerationData
			if err := json.Unmarshal(v, &data); err != nil {
				return err
			}
			g.Data = &data
		}
		delete(raw, "data")
	}
	if len(raw) > 0 {
		g.Extra = raw
	}
	return nil
}

// JudgeData is the payload produced by the judge task
type JudgeData struct {
	Runnable        bool     `json:"runnable"`
	IdeaCorrect     bool     `json:"ideaCorrect"`
	ComplexityScore *float64 `json:"complexityScore,omitempty"`
	Summary         string   `json:"summary"`
	Issues          []string `json:"issues"`
	Suggestions     []string `json:"suggestions"`
	FixedCode       *string  `json:"fixedCode,omitempty"`
}

// JudgeResult is the envelope returned by the judge task
type JudgeResult struct {
	Status string    `json:"status,omitempty"`
	Data   JudgeData `json:"data"`
}
