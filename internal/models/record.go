package models

import (
	"time"
)

// Review tracks the spaced-review cycle of a passed question
type Review struct {
	ReviewedCount  int        `json:"reviewedCount"`
	LastReviewedAt *time.Time `json:"lastReviewedAt"`
	NeedsReview    bool       `json:"needsReview"`
}

// Record is the persisted progress state of one catalog item.
// JSON names match the question-records.json document layout.
type Record struct {
	ID               string            `json:"questionId"`
	Title            string            `json:"title"`
	Difficulty       Difficulty        `json:"difficulty"`
	Category         string            `json:"category"`
	GenerationResult *GenerationResult `json:"geminiResult"`
	LastAnswer       string            `json:"answer"`
	LastAnalysis     *JudgeResult      `json:"answerAnalysis"`
	Completed        bool              `json:"completed"`
	FirstPassedAt    *time.Time        `json:"firstPassedAt"`
	CompletedAt      *time.Time        `json:"completedAt"`
	Review           Review            `json:"review"`
	UpdatedAt        *time.Time        `json:"updatedAt"`
	Version          int64             `json:"version"`
}

// NewRecord builds the default record for a catalog item
func NewRecord(item CatalogItem) *Record {
	return &Record{
		ID:         item.ID,
		Title:      item.Title,
		Difficulty: item.Difficulty,
		Category:   item.Category,
	}
}

// IsSeen returns true once the question has been passed at least once
func (r *Record) IsSeen() bool {
	return r != nil && r.Completed
}

// Clone returns a shallow copy of r. Pointer fields (GenerationResult,
// LastAnalysis, timestamps) are shared, so callers replace them rather
// than mutate through them.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// ReviewPatch holds the review fields to deep-merge. Nil means untouched.
type ReviewPatch struct {
	ReviewedCount  *int
	LastReviewedAt *time.Time
	NeedsReview    *bool
}

// RecordPatch holds top-level fields to shallow-merge. Nil means untouched.
type RecordPatch struct {
	GenerationResult *GenerationResult
	LastAnswer       *string
	LastAnalysis     *JudgeResult
	Completed        *bool
	FirstPassedAt    *time.Time
	CompletedAt      *time.Time
	Review           *ReviewPatch
}

// Apply merges patch onto a copy of r and stamps UpdatedAt and Version.
// Completed never goes back to false and FirstPassedAt is write-once.
func (r *Record) Apply(patch RecordPatch, now time.Time) *Record {
	out := r.Clone()

	if patch.GenerationResult != nil {
		out.GenerationResult = patch.GenerationResult
	}
	if patch.LastAnswer != nil {
		out.LastAnswer = *patch.LastAnswer
	}
	if patch.LastAnalysis != nil {
		out.LastAnalysis = patch.LastAnalysis
	}
	if patch.Completed != nil && *patch.Completed {
		out.Completed = true
	}
	if patch.FirstPassedAt != nil && out.FirstPassedAt == nil {
		t := *patch.FirstPassedAt
		out.FirstPassedAt = &t
	}
	if patch.CompletedAt != nil {
		t := *patch.CompletedAt
		out.CompletedAt = &t
	}

	if rp := patch.Review; rp != nil {
		if rp.ReviewedCount != nil && *rp.ReviewedCount >= 0 {
			out.Review.ReviewedCount = *rp.ReviewedCount
		}
		if rp.LastReviewedAt != nil {
			t := *rp.LastReviewedAt
			out.Review.LastReviewedAt = &t
		}
		if rp.NeedsReview != nil {
			out.Review.NeedsReview = *rp.NeedsReview
		}
	}

	stamp := now
	out.UpdatedAt = &stamp
	out.Version++
	return out
}
