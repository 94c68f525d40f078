package repositories

import (
	"testing"
	"time"

	"github.com/hydrusband/fetchd/internal/models"
	helpers "github.com/hydrusband/fetchd/internal/testing"
)

func finishedAt(tm time.Time) *time.Time {
	return &tm
}

func TestHistoryRepository(t *testing.T) {
	t.Run("Save creates", func(t *testing.T) {
		db := helpers.SetupDB(t)

		repo := NewHistoryRepository(db)
		record := models.NewHistoryRecord("job1", "https://example.com/v", models.KindMedia, models.StatusFinished)
		record.Filename = "video.mp4"
		record.FinishedAt = finishedAt(time.Now().UTC())

		if err := repo.Save(record); err != nil {
			t.Fatalf("failed to save record: %v", err)
		}

		retrieved, err := repo.Get("job1")
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}

		if retrieved.Source != record.Source {
			t.Errorf("expected source %s, got %s", record.Source, retrieved.Source)
		}
		if retrieved.Filename != "video.mp4" {
			t.Errorf("expected filename video.mp4, got %s", retrieved.Filename)
		}
		if retrieved.Status != models.StatusFinished {
			t.Errorf("expected status finished, got %s", retrieved.Status)
		}
	})

	t.Run("Save twice updates in place", func(t *testing.T) {
		db := helpers.SetupDB(t)

		repo := NewHistoryRepository(db)
		record := models.NewHistoryRecord("job1", "https://example.com/v", models.KindMedia, models.StatusError)
		if err := repo.Save(record); err != nil {
			t.Fatalf("failed to save record: %v", err)
		}

		record.Status = models.StatusFinished
		record.Filename = "video.mp4"
		if err := repo.Save(record); err != nil {
			t.Fatalf("failed to re-save record: %v", err)
		}

		records, err := repo.List(0)
		if err != nil {
			t.Fatalf("failed to list records: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected exactly 1 record after double save, got %d", len(records))
		}
		if records[0].Status != models.StatusFinished {
			t.Errorf("expected updated status finished, got %s", records[0].Status)
		}
	})

	t.Run("Save rejects invalid records", func(t *testing.T) {
		db := helpers.SetupDB(t)

		repo := NewHistoryRepository(db)
		record := models.NewHistoryRecord("", "https://example.com/v", models.KindMedia, models.StatusFinished)

		if err := repo.Save(record); err == nil {
			t.Error("expected validation error for empty id")
		}
	})

	t.Run("List orders most-recent-first with limit", func(t *testing.T) {
		db := helpers.SetupDB(t)

		repo := NewHistoryRepository(db)
		for _, id := range []string{"a", "b", "c"} {
			record := models.NewHistoryRecord(id, "https://example.com/"+id, models.KindMedia, models.StatusFinished)
			if err := repo.Save(record); err != nil {
				t.Fatalf("failed to save record %s: %v", id, err)
			}
		}

		records, err := repo.List(2)
		if err != nil {
			t.Fatalf("failed to list records: %v", err)
		}

		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].ID != "c" || records[1].ID != "b" {
			t.Errorf("expected order [c b], got [%s %s]", records[0].ID, records[1].ID)
		}
	})

	t.Run("Delete reports existence", func(t *testing.T) {
		db := helpers.SetupDB(t)

		repo := NewHistoryRepository(db)
		record := models.NewHistoryRecord("job1", "magnet:?xt=urn:btih:abc", models.KindSwarm, models.StatusCancelled)
		if err := repo.Save(record); err != nil {
			t.Fatalf("failed to save record: %v", err)
		}

		existed, err := repo.Delete("job1")
		if err != nil {
			t.Fatalf("failed to delete record: %v", err)
		}
		if !existed {
			t.Error("expected delete of existing record to report true")
		}

		existed, err = repo.Delete("job1")
		if err != nil {
			t.Fatalf("failed to delete missing record: %v", err)
		}
		if existed {
			t.Error("expected delete of missing record to report false")
		}
	})
}
