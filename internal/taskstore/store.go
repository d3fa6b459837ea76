// Package taskstore is the durable Task Store of spec.md §4.3: every
// task the facade accepts is written here before it is queued, and every
// status transition a worker makes is persisted here before the worker
// releases its render engine. Callers never see the underlying pool or
// SQL — only Task values and sentinel errors from internal/types.
package taskstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/IshaanNene/pdfsvc/internal/types"
)

// Config bundles connection and migration settings (spec.md §6's
// DATABASE_URL is the source of ConnectionString).
type Config struct {
	ConnectionString string
	MaxConnections   int32
	ConnectTimeout   time.Duration
	MigrationsPath   string
}

// Store wraps a pgx connection pool and implements the task lifecycle
// operations spec.md §4.3 names.
type Store struct {
	pool   *pgxpool.Pool
	config Config
}

// New opens a connection pool, verifies connectivity, and applies any
// pending migrations before returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("taskstore: connection string is required")
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 10
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "file://internal/taskstore/migrations"
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("taskstore: parse connection string: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConnections
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	timeoutCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(timeoutCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("taskstore: create connection pool: %w", err)
	}
	if err := pool.Ping(timeoutCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("taskstore: ping database: %w", err)
	}

	s := &Store{pool: pool, config: cfg}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrationDB, err := sql.Open("postgres", s.config.ConnectionString)
	if err != nil {
		return fmt.Errorf("taskstore: open migration connection: %w", err)
	}
	defer migrationDB.Close()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("taskstore: create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(s.config.MigrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("taskstore: create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("taskstore: apply migrations: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies database connectivity for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Create inserts a new task row in pending status (spec.md §4.3 create).
func (s *Store) Create(ctx context.Context, taskID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pdf_tasks (task_id, status, created_at)
		VALUES ($1, $2, NOW())`,
		taskID, types.StatusPending)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return types.ErrDuplicate
		}
		return fmt.Errorf("taskstore: create task %s: %w", taskID, err)
	}
	return nil
}

// Get retrieves one task by id.
func (s *Store) Get(ctx context.Context, taskID string) (*types.Task, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT task_id, status, pdf_url, pdf_filename, error, created_at, completed_at
		FROM pdf_tasks WHERE task_id = $1`, taskID)
	return scanTask(row)
}

// MarkQueued transitions pending -> queued once the job has been
// accepted onto the bounded queue.
func (s *Store) MarkQueued(ctx context.Context, taskID string) error {
	return s.transition(ctx, taskID, types.StatusPending, types.StatusQueued)
}

// MarkProcessing transitions queued -> processing. The update is
// conditioned on the row's current status still being "queued": a
// second worker racing to pick up the same task id sees RowsAffected
// == 0 and gets types.ErrInvalidTransition back, rather than silently
// re-processing a task another worker already has (spec.md §9, open
// question on duplicate processing of the same task id).
func (s *Store) MarkProcessing(ctx context.Context, taskID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pdf_tasks SET status = $1 WHERE task_id = $2 AND status = $3`,
		types.StatusProcessing, taskID, types.StatusQueued)
	if err != nil {
		return fmt.Errorf("taskstore: mark processing %s: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrInvalidTransition
	}
	return nil
}

// Complete sets the task to completed and records the PDF location.
// The update is not conditioned on the row's current status; it returns
// types.ErrNotFound only when no row has the id.
func (s *Store) Complete(ctx context.Context, taskID, pdfURL, pdfFilename string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pdf_tasks
		SET status = $1, pdf_url = $2, pdf_filename = $3, completed_at = NOW()
		WHERE task_id = $4`,
		types.StatusCompleted, pdfURL, pdfFilename, taskID)
	if err != nil {
		return fmt.Errorf("taskstore: complete %s: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// Fail sets the task to failed and records the error message. The update
// is not conditioned on the row's current status (the facade calls it on
// a queued task when the job queue is full); it returns
// types.ErrNotFound only when no row has the id.
func (s *Store) Fail(ctx context.Context, taskID, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pdf_tasks
		SET status = $1, error = $2, completed_at = NOW()
		WHERE task_id = $3`,
		types.StatusFailed, reason, taskID)
	if err != nil {
		return fmt.Errorf("taskstore: fail %s: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// transition is the shared guarded-update helper for simple status
// moves that don't touch the result columns.
func (s *Store) transition(ctx context.Context, taskID string, from, to types.Status) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pdf_tasks SET status = $1 WHERE task_id = $2 AND status = $3`,
		to, taskID, from)
	if err != nil {
		return fmt.Errorf("taskstore: transition %s %s->%s: %w", taskID, from, to, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrInvalidTransition
	}
	return nil
}

// Stats aggregates task counts for the /stats endpoint (spec.md §6).
func (s *Store) Stats(ctx context.Context) (types.Stats, error) {
	var stats types.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status IN ($3, $4))
		FROM pdf_tasks`,
		types.StatusCompleted, types.StatusFailed, types.StatusQueued, types.StatusProcessing,
	).Scan(&stats.Total, &stats.Completed, &stats.Failed, &stats.Active)
	if err != nil {
		return types.Stats{}, fmt.Errorf("taskstore: stats: %w", err)
	}

	var avgSeconds sql.NullFloat64
	err = s.pool.QueryRow(ctx, `
		SELECT EXTRACT(EPOCH FROM AVG(completed_at - created_at))
		FROM pdf_tasks WHERE status = $1`, types.StatusCompleted,
	).Scan(&avgSeconds)
	if err != nil {
		return types.Stats{}, fmt.Errorf("taskstore: average processing time: %w", err)
	}
	if avgSeconds.Valid {
		stats.AverageProcessingTime = time.Duration(avgSeconds.Float64 * float64(time.Second))
	}

	return stats, nil
}

// PurgeOlderThan deletes terminal (completed or failed) tasks whose
// completed_at is older than retention, returning the number removed
// (spec.md §4.6). Non-terminal tasks are never purged regardless of
// age.
func (s *Store) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM pdf_tasks
		WHERE status IN ($1, $2) AND completed_at < $3`,
		types.StatusCompleted, types.StatusFailed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("taskstore: purge older than %s: %w", retention, err)
	}
	return int(tag.RowsAffected()), nil
}

type row interface {
	Scan(dest ...any) error
}

func scanTask(r row) (*types.Task, error) {
	t := &types.Task{}
	err := r.Scan(&t.TaskID, &t.Status, &t.PDFURL, &t.PDFFileName, &t.Error, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("taskstore: scan task: %w", err)
	}
	return t, nil
}
