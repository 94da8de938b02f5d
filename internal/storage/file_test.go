package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/terra-clan/practice-engine/internal/models"
)

func bump(title string) MutateFunc {
	return func(current *models.Record) (*models.Record, error) {
		if current == nil {
			current = &models.Record{ID: "1", Title: title}
		}
		current.Version++
		current.Review.ReviewedCount++
		return current, nil
	}
}

func TestFileRepositoryCreatesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "question-records.json")

	repo, err := NewFileRepository(path)
	if err != nil {
		t.Fatalf("NewFileRepository failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("document not created: %v", err)
	}
	if string(data) != "{\n  \"records\": {}\n}" {
		t.Errorf("unexpected initial document: %s", data)
	}
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestFileRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "records.json"))
	if err != nil {
		t.Fatalf("NewFileRepository failed: %v", err)
	}

	rec, err := repo.GetRecord(ctx, "1")
	if err != nil || rec != nil {
		t.Fatalf("expected no record, got %v, %v", rec, err)
	}

	if _, err := repo.UpdateRecord(ctx, "1", bump("Two Sum")); err != nil {
		t.Fatalf("UpdateRecord failed: %v", err)
	}
	if _, err := repo.UpdateRecord(ctx, "1", bump("ignored")); err != nil {
		t.Fatalf("UpdateRecord failed: %v", err)
	}

	rec, err = repo.GetRecord(ctx, "1")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if rec.Title != "Two Sum" || rec.Review.ReviewedCount != 2 || rec.Version != 2 {
		t.Errorf("unexpected record: %+v", rec)
	}

	many, err := repo.GetRecords(ctx, []string{"1", "404"})
	if err != nil {
		t.Fatalf("GetRecords failed: %v", err)
	}
	if len(many) != 1 || many["1"] == nil {
		t.Errorf("expected only record 1, got %v", many)
	}
}

func TestFileRepositoryRecoversFromCorruptDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo, err := NewFileRepository(path)
	if err != nil {
		t.Fatalf("NewFileRepository failed: %v", err)
	}

	many, err := repo.GetRecords(ctx, []string{"1"})
	if err != nil {
		t.Fatalf("GetRecords on corrupt document should not fail: %v", err)
	}
	if len(many) != 0 {
		t.Errorf("expected empty result, got %v", many)
	}

	if _, err := repo.UpdateRecord(ctx, "1", bump("Two Sum")); err != nil {
		t.Fatalf("UpdateRecord after corruption failed: %v", err)
	}
	rec, _ := repo.GetRecord(ctx, "1")
	if rec == nil || rec.Title != "Two Sum" {
		t.Errorf("expected rewritten document with record 1, got %+v", rec)
	}
}

func TestFileRepositoryMissingDocumentAfterStart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.json")
	repo, err := NewFileRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	os.Remove(path)

	rec, err := repo.GetRecord(ctx, "1")
	if err != nil || rec != nil {
		t.Fatalf("expected empty read, got %v, %v", rec, err)
	}
	if _, err := repo.UpdateRecord(ctx, "1", bump("x")); err != nil {
		t.Fatalf("UpdateRecord failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("document not recreated: %v", err)
	}
}

func TestFileRepositoryMutateErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "records.json"))
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	_, err = repo.UpdateRecord(ctx, "1", func(*models.Record) (*models.Record, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if rec, _ := repo.GetRecord(ctx, "1"); rec != nil {
		t.Errorf("record written despite mutate error: %+v", rec)
	}
}

func TestFileRepositoryConcurrentUpdatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "records.json"))
	if err != nil {
		t.Fatal(err)
	}

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.UpdateRecord(ctx, "1", bump("Two Sum")); err != nil {
				t.Errorf("UpdateRecord failed: %v", err)
			}
		}()
	}
	wg.Wait()

	rec, _ := repo.GetRecord(ctx, "1")
	if rec == nil || rec.Review.ReviewedCount != writers {
		t.Fatalf("expected %d updates, got %+v", writers, rec)
	}
}

func TestFileRepositoryChecksContextAfterLock(t *testing.T) {
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "records.json"))
	if err != nil {
		t.Fatal(err)
	}

	holding := make(chan struct{})
	release := make(chan struct{})
	holderDone := make(chan error, 1)
	go func() {
		_, err := repo.UpdateRecord(context.Background(), "2", func(current *models.Record) (*models.Record, error) {
			close(holding)
			<-release
			return &models.Record{ID: "2"}, nil
		})
		holderDone <- err
	}()
	<-holding

	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, err := repo.UpdateRecord(ctx, "1", bump("late"))
		waiterDone <- err
	}()

	cancel()
	close(release)

	if err := <-holderDone; err != nil {
		t.Fatalf("holder update failed: %v", err)
	}
	if err := <-waiterDone; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if rec, _ := repo.GetRecord(context.Background(), "1"); rec != nil {
		t.Errorf("record written after cancellation: %+v", rec)
	}
}
