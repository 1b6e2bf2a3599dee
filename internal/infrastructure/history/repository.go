package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"vconv/internal/domain/media"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id       TEXT NOT NULL DEFAULT '',
    file_name    TEXT NOT NULL,
    file_size    INTEGER NOT NULL DEFAULT 0,
    status       TEXT NOT NULL,
    download_url TEXT NOT NULL DEFAULT '',
    error        TEXT NOT NULL DEFAULT '',
    started_at   INTEGER NOT NULL,
    finished_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversions_job_id ON conversions(job_id);
CREATE INDEX IF NOT EXISTS idx_conversions_finished_at ON conversions(finished_at);
`

// ErrNotFound is returned when no entry matches.
var ErrNotFound = errors.New("history entry not found")

// Entry is one finished conversion as seen by this client.
type Entry struct {
	ID          int64
	JobID       string
	FileName    string
	FileSize    int64
	Status      media.JobStatus
	DownloadURL string
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Duration is the wall time from upload start to the terminal event.
func (e Entry) Duration() time.Duration {
	if e.StartedAt.IsZero() || e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Stats summarizes the stored entries.
type Stats struct {
	Total       int
	Completed   int
	Failed      int
	TotalBytes  int64
	AvgDuration time.Duration
}

// EntryFromJob converts a terminal job snapshot into an entry.
func EntryFromJob(job media.Job) (Entry, error) {
	if !job.Status.Terminal() {
		return Entry{}, fmt.Errorf("job is %s, not finished", job.Status)
	}
	entry := Entry{
		JobID:       job.ID,
		Status:      job.Status,
		DownloadURL: job.DownloadURL,
		StartedAt:   job.StartedAt,
		FinishedAt:  job.FinishedAt,
	}
	if job.File != nil {
		entry.FileName = job.File.Name
		entry.FileSize = job.File.Size
	}
	if job.LastError != nil {
		entry.Error = job.LastError.Message
	}
	return entry, nil
}

// Repository stores conversion history in SQLite.
type Repository struct {
	db *sql.DB
}

// New opens the database at dbPath, creating the schema if needed.
func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Record inserts entry and returns it with its row id.
func (r *Repository) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = entry.FinishedAt
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO conversions (job_id, file_name, file_size, status, download_url, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.JobID, entry.FileName, entry.FileSize, string(entry.Status), entry.DownloadURL, entry.Error,
		entry.StartedAt.UnixMilli(), entry.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return Entry{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return Entry{}, err
	}
	entry.ID = id
	return entry, nil
}

// Get returns the latest entry recorded for jobID.
func (r *Repository) Get(ctx context.Context, jobID string) (Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, job_id, file_name, file_size, status, download_url, error, started_at, finished_at
		 FROM conversions WHERE job_id = ? ORDER BY id DESC LIMIT 1`, jobID,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return entry, err
}

// Recent returns up to limit entries, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, job_id, file_name, file_size, status, download_url, error, started_at, finished_at
		 FROM conversions ORDER BY finished_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats aggregates every stored entry.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var (
		stats Stats
		avgMs sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(file_size), 0),
		        AVG(CASE WHEN status = ? THEN finished_at - started_at END)
		 FROM conversions`,
		string(media.StatusCompleted), string(media.StatusFailed), string(media.StatusCompleted),
	).Scan(&stats.Total, &stats.Completed, &stats.Failed, &stats.TotalBytes, &avgMs)
	if err != nil {
		return Stats{}, err
	}
	if avgMs.Valid {
		stats.AvgDuration = time.Duration(avgMs.Float64 * float64(time.Millisecond))
	}
	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		entry             Entry
		status            string
		started, finished int64
	)
	if err := s.Scan(&entry.ID, &entry.JobID, &entry.FileName, &entry.FileSize, &status,
		&entry.DownloadURL, &entry.Error, &started, &finished); err != nil {
		return Entry{}, err
	}
	entry.Status = media.JobStatus(status)
	entry.StartedAt = time.UnixMilli(started)
	entry.FinishedAt = time.UnixMilli(finished)
	return entry, nil
}
