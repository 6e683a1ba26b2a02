// Package postgres provides PostgreSQL database adapters.
//
// It implements the repository ports for data persistence.
// The package provides type-safe database operations with
// connection pooling and transaction support.
package postgres

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// maxStoredErrLen bounds last_error so a pathological upstream message cannot
// bloat the queue table.
const maxStoredErrLen = 1000

// truncateErr bounds an error message for storage. A byte-level cut can split
// a multi-byte rune, and Postgres rejects invalid UTF-8 in text columns, so
// the result is forced back to valid UTF-8.
func truncateErr(s string) string {
	if len(s) > maxStoredErrLen {
		s = s[:maxStoredErrLen]
	}
	return strings.ToValidUTF8(s, "")
}

// QueueRepo is the durable work queue backed by the jobs_queue table.
type QueueRepo struct{ Pool PgxPool }

// NewQueueRepo constructs a QueueRepo with the given pool.
func NewQueueRepo(p PgxPool) *QueueRepo { return &QueueRepo{Pool: p} }

// newQueueID returns a lexicographically sortable unique id. ULIDs sort by
// creation time, which keeps index pages hot on the oldest-first lease scan.
func newQueueID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), crand.Reader).String()
}

// Enqueue inserts a READY item for the candidate and stage and returns its id.
// Duplicates are legal; the stages themselves are idempotent.
func (r *QueueRepo) Enqueue(ctx domain.Context, candidateID string, stage domain.Stage) (string, error) {
	tracer := otel.Tracer("repo.queue")
	ctx, span := tracer.Start(ctx, "queue.Enqueue")
	defer span.End()
	span.SetAttributes(attribute.String("stage", string(stage)))
	if !stage.Valid() {
		return "", fmt.Errorf("op=queue.enqueue: stage %q: %w", stage, domain.ErrInvalidArgument)
	}
	id := newQueueID()
	now := time.Now().UTC()
	q := `INSERT INTO jobs_queue (queue_id, candidate_id, job_type, status, attempts, created_at, updated_at) VALUES ($1,$2,$3,$4,0,$5,$5)`
	_, err := r.Pool.Exec(ctx, q, id, candidateID, string(stage), domain.QueueReady, now)
	if err != nil {
		return "", fmt.Errorf("op=queue.enqueue: %w", err)
	}
	return id, nil
}

// LeaseNext atomically claims the oldest READY item: it locks the row with
// SKIP LOCKED, marks it RUNNING and increments attempts, all in one
// transaction. Returns false when the queue is empty.
func (r *QueueRepo) LeaseNext(ctx domain.Context) (domain.QueueItem, bool, error) {
	tracer := otel.Tracer("repo.queue")
	ctx, span := tracer.Start(ctx, "queue.LeaseNext")
	defer span.End()
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.QueueItem{}, false, fmt.Errorf("op=queue.lease: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `SELECT queue_id, candidate_id, job_type, status, attempts, COALESCE(last_error,''), created_at, updated_at
	FROM jobs_queue
	WHERE status=$1
	ORDER BY created_at
	LIMIT 1
	FOR UPDATE SKIP LOCKED`
	var it domain.QueueItem
	var stage string
	err = tx.QueryRow(ctx, q, domain.QueueReady).Scan(&it.QueueID, &it.CandidateID, &stage, &it.Status, &it.Attempts, &it.LastError, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.QueueItem{}, false, nil
		}
		return domain.QueueItem{}, false, fmt.Errorf("op=queue.lease: %w", err)
	}
	it.Stage = domain.Stage(stage)

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `UPDATE jobs_queue SET status=$2, attempts=attempts+1, updated_at=$3 WHERE queue_id=$1`, it.QueueID, domain.QueueRunning, now)
	if err != nil {
		return domain.QueueItem{}, false, fmt.Errorf("op=queue.lease: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.QueueItem{}, false, fmt.Errorf("op=queue.lease: %w", err)
	}
	it.Status = domain.QueueRunning
	it.Attempts++
	it.UpdatedAt = now
	return it, true, nil
}

// Complete marks a leased item DONE.
func (r *QueueRepo) Complete(ctx domain.Context, queueID string) error {
	tracer := otel.Tracer("repo.queue")
	ctx, span := tracer.Start(ctx, "queue.Complete")
	defer span.End()
	q := `UPDATE jobs_queue SET status=$2, updated_at=$3 WHERE queue_id=$1`
	tag, err := r.Pool.Exec(ctx, q, queueID, domain.QueueDone, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=queue.complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=queue.complete: %w", domain.ErrNotFound)
	}
	return nil
}

// Fail marks a leased item FAILED and records the error, truncated so the
// table cannot grow unbounded on repeated upstream failures.
func (r *QueueRepo) Fail(ctx domain.Context, queueID, errMsg string) error {
	tracer := otel.Tracer("repo.queue")
	ctx, span := tracer.Start(ctx, "queue.Fail")
	defer span.End()
	errMsg = truncateErr(errMsg)
	q := `UPDATE jobs_queue SET status=$2, last_error=$3, updated_at=$4 WHERE queue_id=$1`
	tag, err := r.Pool.Exec(ctx, q, queueID, domain.QueueFailed, errMsg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=queue.fail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=queue.fail: %w", domain.ErrNotFound)
	}
	return nil
}

// Retry flips an item back to READY for another pass. Attempts and last_error
// are preserved so the retry history stays visible.
func (r *QueueRepo) Retry(ctx domain.Context, queueID string) error {
	tracer := otel.Tracer("repo.queue")
	ctx, span := tracer.Start(ctx, "queue.Retry")
	defer span.End()
	q := `UPDATE jobs_queue SET status=$2, updated_at=$3 WHERE queue_id=$1`
	tag, err := r.Pool.Exec(ctx, q, queueID, domain.QueueReady, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=queue.retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=queue.retry: %w", domain.ErrNotFound)
	}
	return nil
}

// Get loads one queue item by id.
func (r *QueueRepo) Get(ctx domain.Context, queueID string) (domain.QueueItem, error) {
	tracer := otel.Tracer("repo.queue")
	ctx, span := tracer.Start(ctx, "queue.Get")
	defer span.End()
	q := `SELECT queue_id, candidate_id, job_type, status, attempts, COALESCE(last_error,''), created_at, updated_at FROM jobs_queue WHERE queue_id=$1`
	var it domain.QueueItem
	var stage string
	err := r.Pool.QueryRow(ctx, q, queueID).Scan(&it.QueueID, &it.CandidateID, &stage, &it.Status, &it.Attempts, &it.LastError, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.QueueItem{}, fmt.Errorf("op=queue.get: %w", domain.ErrNotFound)
		}
		return domain.QueueItem{}, fmt.Errorf("op=queue.get: %w", err)
	}
	it.Stage = domain.Stage(stage)
	return it, nil
}

// ListFailed returns the most recently failed items, newest first, for
// operator triage.
func (r *QueueRepo) ListFailed(ctx domain.Context, limit int) ([]domain.QueueItem, error) {
	tracer := otel.Tracer("repo.queue")
	ctx, span := tracer.Start(ctx, "queue.ListFailed")
	defer span.End()
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT queue_id, candidate_id, job_type, status, attempts, COALESCE(last_error,''), created_at, updated_at FROM jobs_queue WHERE status=$1 ORDER BY updated_at DESC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, domain.QueueFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("op=queue.list_failed: %w", err)
	}
	defer rows.Close()
	var out []domain.QueueItem
	for rows.Next() {
		var it domain.QueueItem
		var stage string
		if err := rows.Scan(&it.QueueID, &it.CandidateID, &stage, &it.Status, &it.Attempts, &it.LastError, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("op=queue.list_failed: %w", err)
		}
		it.Stage = domain.Stage(stage)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=queue.list_failed: %w", err)
	}
	return out, nil
}

// ResetStuckRunning flips RUNNING items not touched since olderThan back to
// READY. Used by the reconciler to recover leases held by crashed workers.
func (r *QueueRepo) ResetStuckRunning(ctx domain.Context, olderThan time.Time) (int64, error) {
	tracer := otel.Tracer("repo.queue")
	ctx, span := tracer.Start(ctx, "queue.ResetStuckRunning")
	defer span.End()
	q := `UPDATE jobs_queue SET status=$1, updated_at=$2 WHERE status=$3 AND updated_at < $4`
	tag, err := r.Pool.Exec(ctx, q, domain.QueueReady, time.Now().UTC(), domain.QueueRunning, olderThan)
	if err != nil {
		return 0, fmt.Errorf("op=queue.reset_stuck: %w", err)
	}
	return tag.RowsAffected(), nil
}
