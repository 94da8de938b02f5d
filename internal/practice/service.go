package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/terra-clan/practice-engine/internal/generator"
	"github.com/terra-clan/practice-engine/internal/merge"
	"github.com/terra-clan/practice-engine/internal/models"
	"github.com/terra-clan/practice-engine/internal/prefetch"
	"github.com/terra-clan/practice-engine/internal/records"
	"github.com/terra-clan/practice-engine/internal/scheduler"
)

// Common errors
var (
	ErrItemNotFound = errors.New("question not found in catalog")
	ErrInvalidInput = errors.New("invalid input")
	ErrGeneration   = errors.New("generation failed")
)

// Defaults applied when a request leaves mode or language empty
const (
	DefaultLanguage = "python"
	DefaultMode     = "solving"
)

// Catalog is the read side of the question catalog
type Catalog interface {
	Items() []models.CatalogItem
	Get(id string) (models.CatalogItem, bool)
}

// Options tunes the service
type Options struct {
	PrefetchConcurrency int
}

// Service implements the practice operations
type Service struct {
	catalog   Catalog
	records   *records.Store
	generator generator.Generator
	prefetch  *prefetch.Coordinator
}

// NewService creates a practice service and its prefetch coordinator
func NewService(catalog Catalog, store *records.Store, gen generator.Generator, opts Options) *Service {
	s := &Service{
		catalog:   catalog,
		records:   store,
		generator: gen,
	}
	s.prefetch = prefetch.NewCoordinator(s.generateFull, s.commitPrefetch, opts.PrefetchConcurrency)
	return s
}

// Prefetcher returns the coordinator for event subscriptions
func (s *Service) Prefetcher() *prefetch.Coordinator {
	return s.prefetch
}

// Close stops background work
func (s *Service) Close() {
	s.prefetch.Close()
}

// Catalog returns the catalog snapshot in document order
func (s *Service) Catalog() []models.CatalogItem {
	return s.catalog.Items()
}

// ListSession schedules a session from the catalog and recorded progress
func (s *Service) ListSession(ctx context.Context, cfg models.SessionConfig) ([]models.ScheduledItem, error) {
	items := s.catalog.Items()
	if len(items) == 0 {
		return []models.ScheduledItem{}, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	recs, err := s.records.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	session := scheduler.Build(items, cfg, recs)
	slog.Debug("session scheduled",
		"strategy", cfg.Strategy,
		"study_mode", cfg.StudyMode,
		"quantity", cfg.ClampedQuantity(),
		"items", len(session),
	)
	return session, nil
}

// LoadRecords returns the existing records among ids
func (s *Service) LoadRecords(ctx context.Context, ids []string) (map[string]*models.Record, error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	return s.records.GetMany(ctx, cleaned)
}

// CacheGenerationResult stores a full generation result for item
func (s *Service) CacheGenerationResult(ctx context.Context, item models.CatalogItem, result *models.GenerationResult) (*models.Record, error) {
	item, err := s.resolve(item)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: generation result is required", ErrInvalidInput)
	}
	return s.records.SaveGeneration(ctx, item, result)
}

// RefreshModule merges result into the cached result for one module and
// persists the merged value
func (s *Service) RefreshModule(ctx context.Context, item models.CatalogItem, module string, result *models.GenerationResult) (*models.Record, error) {
	item, err := s.resolve(item)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: generation result is required", ErrInvalidInput)
	}

	return s.records.UpdateGeneration(ctx, item, func(cached *models.GenerationResult) *models.GenerationResult {
		return merge.Merge(cached, result, module)
	})
}

// SubmitAnswer judges answer and records the outcome. A judge failure
// leaves the record untouched.
func (s *Service) SubmitAnswer(ctx context.Context, item models.CatalogItem, answer, language, mode string) (*models.EvaluateResponse, error) {
	item, err := s.resolve(item)
	if err != nil {
		return nil, err
	}
	language, mode = withDefaults(language, mode)

	analysis, err := s.generator.Judge(ctx, generator.JudgeInput{
		Title:    item.Title,
		Answer:   answer,
		Language: language,
		Mode:     mode,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to judge answer: %w", ErrGeneration, err)
	}

	var rec *models.Record
	if analysis.Data.Runnable {
		rec, err = s.records.MarkPassed(ctx, item, answer, analysis)
	} else {
		rec, err = s.records.MarkAttempt(ctx, item, answer, analysis)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("answer evaluated",
		"id", item.ID,
		"runnable", analysis.Data.Runnable,
		"idea_correct", analysis.Data.IdeaCorrect,
		"completed", rec.Completed,
		"reviewed_count", rec.Review.ReviewedCount,
	)
	return &models.EvaluateResponse{Analysis: analysis, Record: rec}, nil
}

// Generate calls the generator. With a module the fresh result is merged
// into the cached one, otherwise it replaces it.
func (s *Service) Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error) {
	item, err := s.resolve(req.Question)
	if err != nil {
		return nil, err
	}
	if req.Module != "" && !merge.IsModule(req.Module) {
		return nil, fmt.Errorf("%w: unknown module %q", ErrInvalidInput, req.Module)
	}
	language, mode := withDefaults(req.Language, req.Mode)

	result, err := s.generator.Generate(ctx, generator.GenerateInput{
		Query:    item.Title,
		Language: language,
		Mode:     mode,
		Answer:   req.Answer,
		Module:   req.Module,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	var rec *models.Record
	if req.Module != "" {
		rec, err = s.RefreshModule(ctx, item, req.Module, result)
	} else {
		rec, err = s.records.SaveGeneration(ctx, item, result)
	}
	if err != nil {
		return nil, err
	}
	return &models.GenerateResponse{Result: rec.GenerationResult, Record: rec}, nil
}

// Prefetch schedules the session for cfg and starts generating every item
// that has no cached result yet, superseding any earlier run
func (s *Service) Prefetch(ctx context.Context, cfg models.SessionConfig) (*models.PrefetchResponse, error) {
	session, err := s.ListSession(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(session))
	for _, item := range session {
		ids = append(ids, item.ID)
	}
	recs, err := s.records.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	missing := make([]models.CatalogItem, 0, len(session))
	for _, item := range session {
		if rec := recs[item.ID]; rec == nil || rec.GenerationResult == nil {
			missing = append(missing, item.CatalogItem)
		}
	}

	run := s.prefetch.Start(missing, cfg)
	return &models.PrefetchResponse{RunID: run.ID, Epoch: run.Epoch, Pending: run.Pending}, nil
}

func (s *Service) generateFull(ctx context.Context, item models.CatalogItem, cfg models.SessionConfig) (*models.GenerationResult, error) {
	language, mode := withDefaults(cfg.Language, cfg.Mode)
	return s.generator.Generate(ctx, generator.GenerateInput{
		Query:    item.Title,
		Language: language,
		Mode:     mode,
	})
}

func (s *Service) commitPrefetch(ctx context.Context, item models.CatalogItem, result *models.GenerationResult, check func() error) error {
	_, err := s.records.SaveGenerationIf(ctx, item, result, check)
	return err
}

// resolve returns the catalog's copy of item
func (s *Service) resolve(item models.CatalogItem) (models.CatalogItem, error) {
	id := strings.TrimSpace(item.ID)
	if id == "" {
		return models.CatalogItem{}, fmt.Errorf("%w: question id is required", ErrInvalidInput)
	}
	found, ok := s.catalog.Get(id)
	if !ok {
		return models.CatalogItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return found, nil
}

func withDefaults(language, mode string) (string, string) {
	if language == "" {
		language = DefaultLanguage
	}
	if mode == "" {
		mode = DefaultMode
	}
	return language, mode
}
