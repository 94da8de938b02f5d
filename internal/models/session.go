package models

// Strategy controls how the catalog is ordered before selection
type Strategy string

const (
	StrategyEasyToHard Strategy = "easyToHard"
	StrategyAlternate  Strategy = "alternate"
)

// StudyMode controls whether passed questions come back for review
type StudyMode string

const (
	StudyLearn       StudyMode = "learn"
	StudyLearnReview StudyMode = "learnReview"
)

// Session quantity bounds
const (
	MinQuantity = 1
	MaxQuantity = 10
)

// SessionConfig is the practice configuration chosen by the user.
// Mode and Language only feed prompts and never affect scheduling.
type SessionConfig struct {
	Strategy  Strategy  `json:"strategy"`
	Quantity  int       `json:"quantity"`
	StudyMode StudyMode `json:"studyMode"`
	Mode      string    `json:"mode,omitempty"`     // solving | optimization
	Language  string    `json:"language,omitempty"` // programming language
}

// ClampedQuantity returns Quantity limited to [MinQuantity, MaxQuantity]
func (c SessionConfig) ClampedQuantity() int {
	q := c.Quantity
	if q < MinQuantity {
		q = MinQuantity
	}
	if q > MaxQuantity {
		q = MaxQuantity
	}
	return q
}

// ScheduledItem is one entry of a practice session
type ScheduledItem struct {
	CatalogItem
	IsReview bool `json:"isReview"`
}

// LoadRecordsRequest represents a request for records of several questions
type LoadRecordsRequest struct {
	IDs []string `json:"ids"`
}

// CacheRequest stores a full generation result for a question
type CacheRequest struct {
	Question CatalogItem       `json:"question"`
	Result   *GenerationResult `json:"geminiResult"`
}

// GenerateRequest asks the generator for content, optionally one module only
type GenerateRequest struct {
	Question CatalogItem `json:"question"`
	Mode     string      `json:"mode,omitempty"`
	Language string      `json:"language,omitempty"`
	Answer   string      `json:"answer,omitempty"`
	Module   string      `json:"module,omitempty"`
}

// EvaluateRequest submits an answer for judging
type EvaluateRequest struct {
	Question CatalogItem `json:"question"`
	Answer   string      `json:"answer"`
	Language string      `json:"language,omitempty"`
	Mode     string      `json:"mode,omitempty"`
}

// EvaluateResponse carries the judge verdict and the updated record
type EvaluateResponse struct {
	Analysis *JudgeResult `json:"analysis"`
	Record   *Record      `json:"record"`
}

// GenerateResponse carries the (merged) generation result and its record
type GenerateResponse struct {
	Result *GenerationResult `json:"result"`
	Record *Record           `json:"record"`
}

// PrefetchResponse describes a started prefetch run
type PrefetchResponse struct {
	RunID   string   `json:"runId"`
	Epoch   uint64   `json:"epoch"`
	Pending []string `json:"pending"`
}
