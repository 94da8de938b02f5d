package records

import (
	"context"
	"fmt"
	"time"

	"github.com/terra-clan/practice-engine/internal/models"
	"github.com/terra-clan/practice-engine/internal/storage"
)

// Store implements the record domain operations on top of a repository.
// Every mutation is a single UpdateRecord call, so the read of the
// current record and the write of the merged one cannot interleave with
// another writer.
type Store struct {
	repo storage.Repository
	now  func() time.Time
}

// NewStore creates a record store
func NewStore(repo storage.Repository) *Store {
	return &Store{repo: repo, now: time.Now}
}

// Repository returns the backing repository
func (s *Store) Repository() storage.Repository {
	return s.repo
}

// Get returns the record for id, or nil if none exists
func (s *Store) Get(ctx context.Context, id string) (*models.Record, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	return rec, nil
}

// GetMany returns the existing records among ids
func (s *Store) GetMany(ctx context.Context, ids []string) (map[string]*models.Record, error) {
	if len(ids) == 0 {
		return map[string]*models.Record{}, nil
	}
	recs, err := s.repo.GetRecords(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}
	return recs, nil
}

// Upsert merges patch into the record for item, creating it if absent
func (s *Store) Upsert(ctx context.Context, item models.CatalogItem, patch models.RecordPatch) (*models.Record, error) {
	return s.update(ctx, item, func(*models.Record, time.Time) models.RecordPatch {
		return patch
	})
}

// MarkAttempt stores the latest answer and analysis without touching
// completion or review state
func (s *Store) MarkAttempt(ctx context.Context, item models.CatalogItem, answer string, analysis *models.JudgeResult) (*models.Record, error) {
	return s.Upsert(ctx, item, models.RecordPatch{
		LastAnswer:   &answer,
		LastAnalysis: analysis,
	})
}

// MarkPassed records a passing submission. The first pass completes the
// item and flags it for review; later passes count as reviews.
func (s *Store) MarkPassed(ctx context.Context, item models.CatalogItem, answer string, analysis *models.JudgeResult) (*models.Record, error) {
	return s.update(ctx, item, func(current *models.Record, now time.Time) models.RecordPatch {
		patch := models.RecordPatch{
			LastAnswer:   &answer,
			LastAnalysis: analysis,
		}

		if !current.Completed {
			completed, needsReview := true, true
			patch.Completed = &completed
			patch.FirstPassedAt = &now
			patch.CompletedAt = &now
			patch.Review = &models.ReviewPatch{NeedsReview: &needsReview}
			return patch
		}

		count := current.Review.ReviewedCount + 1
		needsReview := false
		patch.Review = &models.ReviewPatch{
			ReviewedCount:  &count,
			LastReviewedAt: &now,
			NeedsReview:    &needsReview,
		}
		return patch
	})
}

// SaveGeneration caches a generation result on the record
func (s *Store) SaveGeneration(ctx context.Context, item models.CatalogItem, result *models.GenerationResult) (*models.Record, error) {
	return s.Upsert(ctx, item, models.RecordPatch{GenerationResult: result})
}

// UpdateGeneration replaces the cached result with fn(cached) atomically
func (s *Store) UpdateGeneration(ctx context.Context, item models.CatalogItem, fn func(cached *models.GenerationResult) *models.GenerationResult) (*models.Record, error) {
	return s.update(ctx, item, func(current *models.Record, _ time.Time) models.RecordPatch {
		return models.RecordPatch{GenerationResult: fn(current.GenerationResult)}
	})
}

// SaveGenerationIf caches result only if check passes inside the atomic
// update. A check error aborts the write and is returned wrapped.
func (s *Store) SaveGenerationIf(ctx context.Context, item models.CatalogItem, result *models.GenerationResult, check func() error) (*models.Record, error) {
	return s.updateIf(ctx, item, check, func(*models.Record, time.Time) models.RecordPatch {
		return models.RecordPatch{GenerationResult: result}
	})
}

func (s *Store) update(ctx context.Context, item models.CatalogItem, build func(current *models.Record, now time.Time) models.RecordPatch) (*models.Record, error) {
	return s.updateIf(ctx, item, nil, build)
}

func (s *Store) updateIf(ctx context.Context, item models.CatalogItem, check func() error, build func(current *models.Record, now time.Time) models.RecordPatch) (*models.Record, error) {
	rec, err := s.repo.UpdateRecord(ctx, item.ID, func(current *models.Record) (*models.Record, error) {
		if check != nil {
			if err := check(); err != nil {
				return nil, err
			}
		}
		if current == nil {
			current = models.NewRecord(item)
		}
		now := s.now()
		return current.Apply(build(current, now), now), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update record %s: %w", item.ID, err)
	}
	return rec, nil
}
