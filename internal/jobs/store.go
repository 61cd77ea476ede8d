package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"scriber/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new job in the processing state and returns it.
func (s *Store) Create(ctx context.Context, sourcePath, ownerID string) (*Job, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, owner_id, source_path, title, status,
            progress_stage, progress_percent, progress_message,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		nullableString(ownerID),
		sourcePath,
		InferTitle(sourcePath),
		StatusProcessing,
		"accepted",
		0.0,
		"Waiting for pipeline",
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

const selectColumns = `id, owner_id, source_path, title, status, error_message,
    subtitle_text, result_ref, thumbnail_ref, segment_count,
    progress_stage, progress_percent, progress_message, created_at, updated_at`

// GetByID fetches a single job. Returns sql.ErrNoRows when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// Update persists all mutable fields of the job and bumps updated_at.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("update job: nil job")
	}
	job.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET
            owner_id = ?, source_path = ?, title = ?, status = ?,
            error_message = ?, subtitle_text = ?, result_ref = ?, thumbnail_ref = ?,
            segment_count = ?, progress_stage = ?, progress_percent = ?, progress_message = ?,
            updated_at = ?
        WHERE id = ?`,
		nullableString(job.OwnerID),
		job.SourcePath,
		nullableString(job.Title),
		job.Status,
		nullableString(job.ErrorMessage),
		nullableString(job.SubtitleText),
		nullableString(job.ResultRef),
		nullableString(job.ThumbnailRef),
		job.SegmentCount,
		nullableString(job.ProgressStage),
		job.ProgressPercent,
		nullableString(job.ProgressMessage),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %s: rows affected: %w", job.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update job %s: %w", job.ID, sql.ErrNoRows)
	}
	return nil
}

// List returns jobs newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + selectColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var items []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		items = append(items, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return items, nil
}

// ListByOwner returns the owner's jobs newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+selectColumns+` FROM jobs WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs by owner: %w", err)
	}
	defer rows.Close()

	var items []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		items = append(items, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return items, nil
}

// ResetStuckProcessing fails jobs left in the processing state by a previous
// run. The pipeline holds no resumable state, so a restart cannot pick an
// in-flight job back up.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
		StatusFailed,
		ServiceStopReason,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: rows affected: %w", err)
	}
	return affected, nil
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Processing int
	Processed  int
	Failed     int
}

// Health returns aggregate counts for the health endpoint.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	var summary HealthSummary
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return summary, fmt.Errorf("job health: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return summary, fmt.Errorf("scan health row: %w", err)
		}
		summary.Total += count
		switch Status(statusStr) {
		case StatusProcessing:
			summary.Processing = count
		case StatusProcessed:
			summary.Processed = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("iterate health rows: %w", err)
	}
	return summary, nil
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove job %s: rows affected: %w", id, err)
	}
	return affected > 0, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		ownerID         sql.NullString
		sourcePath      string
		title           sql.NullString
		statusStr       string
		errorMessage    sql.NullString
		subtitleText    sql.NullString
		resultRef       sql.NullString
		thumbnailRef    sql.NullString
		segmentCount    sql.NullInt64
		progressStage   sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
		createdRaw      string
		updatedRaw      string
	)

	if err := scanner.Scan(
		&id,
		&ownerID,
		&sourcePath,
		&title,
		&statusStr,
		&errorMessage,
		&subtitleText,
		&resultRef,
		&thumbnailRef,
		&segmentCount,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		OwnerID:         ownerID.String,
		SourcePath:      sourcePath,
		Title:           title.String,
		Status:          Status(statusStr),
		ErrorMessage:    errorMessage.String,
		SubtitleText:    subtitleText.String,
		ResultRef:       resultRef.String,
		ThumbnailRef:    thumbnailRef.String,
		SegmentCount:    int(segmentCount.Int64),
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
