package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/terra-clan/practice-engine/internal/models"
)

// exerciseRepository runs the shared contract against a live backend
func exerciseRepository(t *testing.T, repo Repository, id string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mutate := func(current *models.Record) (*models.Record, error) {
		if current == nil {
			current = &models.Record{ID: id, Title: "Two Sum", Difficulty: models.DifficultyEasy}
		}
		current.Review.ReviewedCount++
		return current, nil
	}

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.UpdateRecord(ctx, id, mutate); err != nil {
				t.Errorf("UpdateRecord failed: %v", err)
			}
		}()
	}
	wg.Wait()

	rec, err := repo.GetRecord(ctx, id)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if rec == nil || rec.Review.ReviewedCount != writers {
		t.Fatalf("expected %d updates, got %+v", writers, rec)
	}

	many, err := repo.GetRecords(ctx, []string{id, id + "-missing"})
	if err != nil {
		t.Fatalf("GetRecords failed: %v", err)
	}
	if len(many) != 1 {
		t.Errorf("expected 1 record, got %d", len(many))
	}
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping")
	}

	ctx := context.Background()
	repo, err := Open(ctx, Options{Driver: DriverPostgres, Postgres: PostgresConfig{DSN: dsn, MaxAttempts: 50}})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer repo.Close()

	exerciseRepository(t, repo, fmt.Sprintf("test-%d", time.Now().UnixNano()))
}

func TestRedisRepository(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set, skipping")
	}

	ctx := context.Background()
	repo, err := Open(ctx, Options{Driver: DriverRedis, Redis: RedisConfig{Address: addr, Prefix: "practice-test:", MaxAttempts: 50}})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer repo.Close()

	exerciseRepository(t, repo, fmt.Sprintf("test-%d", time.Now().UnixNano()))
}
