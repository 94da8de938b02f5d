// Package scheduler builds practice sessions from the catalog and the
// recorded progress. It is a pure function of its inputs.
package scheduler

import (
	"sort"
	"time"

	"github.com/terra-clan/practice-engine/internal/models"
)

// Build returns the ordered session for cfg. records is read only and may
// be nil.
func Build(catalog []models.CatalogItem, cfg models.SessionConfig, records map[string]*models.Record) []models.ScheduledItem {
	ordered := Order(catalog, cfg.Strategy)
	quantity := cfg.ClampedQuantity()

	catalogPos := make(map[string]int, len(catalog))
	for i, item := range catalog {
		if _, ok := catalogPos[item.ID]; !ok {
			catalogPos[item.ID] = i
		}
	}

	unseen := make([]models.CatalogItem, 0, len(ordered))
	var seen []seenItem
	for _, item := range ordered {
		rec := records[item.ID]
		if !rec.IsSeen() {
			unseen = append(unseen, item)
			continue
		}
		seen = append(seen, seenItem{item: item, record: rec, pos: catalogPos[item.ID]})
	}

	session := make([]models.ScheduledItem, 0, quantity)
	if cfg.StudyMode == models.StudyLearnReview {
		for _, item := range unseen {
			session = append(session, models.ScheduledItem{CatalogItem: item})
		}
		for _, s := range oldestFirst(seen) {
			if s.record.Review.NeedsReview {
				session = append(session, models.ScheduledItem{CatalogItem: s.item, IsReview: true})
			}
		}
		if len(session) > quantity {
			session = session[:quantity]
		}
		return session
	}

	// learn (and any unrecognised study mode)
	for _, item := range unseen {
		if len(session) == quantity {
			return session
		}
		session = append(session, models.ScheduledItem{CatalogItem: item})
	}
	for _, s := range oldestFirst(seen) {
		if len(session) == quantity {
			break
		}
		session = append(session, models.ScheduledItem{CatalogItem: s.item, IsReview: true})
	}
	return session
}

// Order applies the strategy ordering to a copy of catalog
func Order(catalog []models.CatalogItem, strategy models.Strategy) []models.CatalogItem {
	switch strategy {
	case models.StrategyEasyToHard:
		out := make([]models.CatalogItem, len(catalog))
		copy(out, catalog)
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Difficulty.Rank() < out[j].Difficulty.Rank()
		})
		return out

	case models.StrategyAlternate:
		// Medium items are dropped by this strategy.
		var easy, hard []models.CatalogItem
		for _, item := range catalog {
			switch item.Difficulty {
			case models.DifficultyEasy:
				easy = append(easy, item)
			case models.DifficultyHard:
				hard = append(hard, item)
			}
		}
		out := make([]models.CatalogItem, 0, len(easy)+len(hard))
		for i := 0; i < len(easy) || i < len(hard); i++ {
			if i < len(easy) {
				out = append(out, easy[i])
			}
			if i < len(hard) {
				out = append(out, hard[i])
			}
		}
		return out

	default:
		out := make([]models.CatalogItem, len(catalog))
		copy(out, catalog)
		return out
	}
}

type seenItem struct {
	item   models.CatalogItem
	record *models.Record
	pos    int
}

// oldestFirst sorts by CompletedAt ascending; a missing timestamp counts as
// oldest and ties keep catalog position.
func oldestFirst(items []seenItem) []seenItem {
	out := make([]seenItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := completedAt(out[i].record), completedAt(out[j].record)
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].pos < out[j].pos
	})
	return out
}

func completedAt(r *models.Record) time.Time {
	if r == nil || r.CompletedAt == nil {
		return time.Time{}
	}
	return *r.CompletedAt
}
