// Package storage is the PostgreSQL persistence layer for sessions,
// jobs, results and logs. Single-entity updates are atomic at the
// database, which is all the concurrency model requires.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trunov/converthub/internal/apperr"
	"github.com/trunov/converthub/internal/entities"
)

type dbStorage struct {
	dbpool *pgxpool.Pool
}

func New(ctx context.Context, databaseDSN string) (*dbStorage, error) {
	pool, err := pgxpool.New(ctx, databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &dbStorage{dbpool: pool}, nil
}

func (s *dbStorage) Ping(ctx context.Context) error {
	return s.dbpool.Ping(ctx)
}

func (s *dbStorage) Close() {
	s.dbpool.Close()
}

func (s *dbStorage) InsertSession(ctx context.Context, session *entities.UploadSession) error {
	query := `
		INSERT INTO upload_sessions (id, object_key, declared_size, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`
	err := s.dbpool.QueryRow(ctx, query,
		session.ID, session.ObjectKey, session.DeclaredSize, session.Status,
	).Scan(&session.CreatedTimestamp, &session.UpdatedTimestamp)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *dbStorage) GetSession(ctx context.Context, id string) (entities.UploadSession, error) {
	var session entities.UploadSession
	query := `
		SELECT id, object_key, declared_size, status, created_at, updated_at
		FROM upload_sessions WHERE id = $1`
	err := s.dbpool.QueryRow(ctx, query, id).Scan(
		&session.ID, &session.ObjectKey, &session.DeclaredSize, &session.Status,
		&session.CreatedTimestamp, &session.UpdatedTimestamp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return session, apperr.ErrNotFound
	}
	if err != nil {
		return session, fmt.Errorf("failed to select session: %w", err)
	}
	return session, nil
}

func (s *dbStorage) UpdateSessionStatus(ctx context.Context, id string, status entities.SessionStatus) error {
	query := `UPDATE upload_sessions SET status = $2, updated_at = now() WHERE id = $1`
	ct, err := s.dbpool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *dbStorage) InsertJob(ctx context.Context, job *entities.Job) error {
	outputs, err := json.Marshal(job.Outputs)
	if err != nil {
		return fmt.Errorf("failed to encode outputs: %w", err)
	}
	query := `
		INSERT INTO jobs (id, session_id, outputs, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	err = s.dbpool.QueryRow(ctx, query,
		job.ID, job.SessionID, outputs, job.Status,
	).Scan(&job.CreatedTimestamp)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func (s *dbStorage) GetJob(ctx context.Context, id string) (entities.Job, error) {
	var job entities.Job
	var outputs []byte
	query := `
		SELECT id, session_id, outputs, status, created_at, started_at, finished_at
		FROM jobs WHERE id = $1`
	err := s.dbpool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.SessionID, &outputs, &job.Status,
		&job.CreatedTimestamp, &job.StartedTimestamp, &job.FinishedTimestamp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return job, apperr.ErrNotFound
	}
	if err != nil {
		return job, fmt.Errorf("failed to select job: %w", err)
	}
	if err := json.Unmarshal(outputs, &job.Outputs); err != nil {
		return job, fmt.Errorf("failed to decode outputs: %w", err)
	}
	return job, nil
}

// AdvanceJobStatus moves a job from one status to another with a guarded
// UPDATE: if the row is no longer in the expected status the update
// matches nothing and the caller gets ErrInvalidTransition, never a
// silent overwrite. started_at/finished_at are stamped on the first
// entry into processing and into a terminal status respectively.
func (s *dbStorage) AdvanceJobStatus(ctx context.Context, id string, from, to entities.JobStatus) error {
	now := time.Now().UTC()
	var started, finished *time.Time
	if to == entities.JobProcessing {
		started = &now
	}
	if to.Terminal() {
		finished = &now
	}

	query := `
		UPDATE jobs
		SET status = $3,
		    started_at = COALESCE(started_at, $4),
		    finished_at = COALESCE(finished_at, $5)
		WHERE id = $1 AND status = $2`
	ct, err := s.dbpool.Exec(ctx, query, id, from, to, started, finished)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrInvalidTransition
	}
	return nil
}

func (s *dbStorage) InsertResult(ctx context.Context, result *entities.Result) error {
	query := `
		INSERT INTO job_results (job_id, backend, format, object_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := s.dbpool.QueryRow(ctx, query,
		result.JobID, result.Backend, result.Format, result.ObjectKey,
	).Scan(&result.ID, &result.CreatedTimestamp)
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	return nil
}

func (s *dbStorage) InsertLogEntry(ctx context.Context, entry *entities.LogEntry) error {
	query := `
		INSERT INTO job_logs (job_id, backend, severity, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := s.dbpool.QueryRow(ctx, query,
		entry.JobID, entry.Backend, entry.Severity, entry.Message,
	).Scan(&entry.ID, &entry.CreatedTimestamp)
	if err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}
	return nil
}

func (s *dbStorage) ListResults(ctx context.Context, jobID string) ([]entities.Result, error) {
	query := `
		SELECT id, job_id, backend, format, object_key, created_at
		FROM job_results WHERE job_id = $1 ORDER BY id`
	rows, err := s.dbpool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to select results: %w", err)
	}
	defer rows.Close()

	results := make([]entities.Result, 0)
	for rows.Next() {
		var r entities.Result
		if err := rows.Scan(&r.ID, &r.JobID, &r.Backend, &r.Format, &r.ObjectKey, &r.CreatedTimestamp); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *dbStorage) ListLogs(ctx context.Context, jobID string) ([]entities.LogEntry, error) {
	query := `
		SELECT id, job_id, backend, severity, message, created_at
		FROM job_logs WHERE job_id = $1 ORDER BY id`
	rows, err := s.dbpool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to select logs: %w", err)
	}
	defer rows.Close()

	logs := make([]entities.LogEntry, 0)
	for rows.Next() {
		var l entities.LogEntry
		if err := rows.Scan(&l.ID, &l.JobID, &l.Backend, &l.Severity, &l.Message, &l.CreatedTimestamp); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
