package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hydrusband/fetchd/internal/models"
)

// HistoryRepository persists one [models.HistoryRecord] per fetch job.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new HistoryRepository with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Save inserts a record or, when a row with the same id exists, updates its
// filename, status, finished timestamp and metadata.
//
// Calling Save twice for the same id yields exactly one row, which is what
// makes the job completion path safe to re-run.
func (r *HistoryRepository) Save(record *models.HistoryRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var exists bool
	err := r.db.QueryRow("SELECT EXISTS(SELECT 1 FROM history WHERE id = ?)", record.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check history record: %w", err)
	}

	if exists {
		return r.update(record)
	}
	return r.create(record)
}

func (r *HistoryRepository) create(record *models.HistoryRecord) error {
	sequence, err := NextSequence(r.db, "history")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `
		INSERT INTO history (id, sequence, source, filename, kind, status, created_at, finished_at, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		record.ID,
		sequence,
		record.Source,
		nullable(record.Filename),
		string(record.Kind),
		string(record.Status),
		record.CreatedAt,
		record.FinishedAt,
		nullable(record.Meta),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}

	return nil
}

func (r *HistoryRepository) update(record *models.HistoryRecord) error {
	query := `
		UPDATE history
		SET filename = ?, status = ?, finished_at = ?, meta = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		nullable(record.Filename),
		string(record.Status),
		record.FinishedAt,
		nullable(record.Meta),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update history record: %w", err)
	}

	return nil
}

// Get retrieves a history record by job id.
func (r *HistoryRepository) Get(id string) (*models.HistoryRecord, error) {
	query := `
		SELECT id, source, filename, kind, status, created_at, finished_at, meta
		FROM history
		WHERE id = ?
	`

	record, err := scanRecord(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("history record not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan history record: %w", err)
	}

	return record, nil
}

// List retrieves history records most-recent-first, up to limit rows.
func (r *HistoryRepository) List(limit int) ([]*models.HistoryRecord, error) {
	if limit <= 0 {
		limit = 200
	}

	query := `
		SELECT id, source, filename, kind, status, created_at, finished_at, meta
		FROM history
		ORDER BY sequence DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []*models.HistoryRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Delete removes a history record by id and reports whether a record existed.
func (r *HistoryRepository) Delete(id string) (bool, error) {
	result, err := r.db.Exec("DELETE FROM history WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete history record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// scanner covers both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.HistoryRecord, error) {
	var (
		id         string
		source     string
		filename   sql.NullString
		kind       string
		status     string
		createdAt  time.Time
		finishedAt sql.NullTime
		meta       sql.NullString
	)

	if err := s.Scan(&id, &source, &filename, &kind, &status, &createdAt, &finishedAt, &meta); err != nil {
		return nil, err
	}

	record := &models.HistoryRecord{
		ID:        id,
		Source:    source,
		Kind:      models.JobKind(kind),
		Status:    models.JobStatus(status),
		CreatedAt: createdAt,
	}
	if filename.Valid {
		record.Filename = filename.String
	}
	if finishedAt.Valid {
		record.FinishedAt = &finishedAt.Time
	}
	if meta.Valid {
		record.Meta = meta.String
	}

	return record, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
