// Package dbqueue drives the pipeline off the durable Postgres-backed queue.
//
// Workers poll the queue, lease the oldest READY item, dispatch it to the
// stage handler and record the outcome. Stage ordering per candidate is
// enforced purely by enqueueing the successor after a stage completes, so
// duplicate or stale items are harmless re-runs of idempotent stages.
package dbqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/observability"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// StageHandler executes one pipeline stage for one candidate. All stage
// services in the usecase package satisfy this.
type StageHandler interface {
	Execute(ctx domain.Context, candidateID string) error
}

// Runner polls the queue and dispatches leased items to stage handlers.
type Runner struct {
	Queue      domain.QueueRepository
	Candidates domain.CandidateRepository
	Handlers   map[domain.Stage]StageHandler

	PollInterval time.Duration
	MaxRetries   int
	Workers      int

	tracer trace.Tracer
}

// NewRunner constructs a Runner. Zero values fall back to sane defaults
// (5s poll, 3 retries, 2 workers).
func NewRunner(q domain.QueueRepository, c domain.CandidateRepository, handlers map[domain.Stage]StageHandler, pollInterval time.Duration, maxRetries, workers int) *Runner {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if workers <= 0 {
		workers = 2
	}
	return &Runner{
		Queue:        q,
		Candidates:   c,
		Handlers:     handlers,
		PollInterval: pollInterval,
		MaxRetries:   maxRetries,
		Workers:      workers,
		tracer:       otel.Tracer("queue.dbqueue"),
	}
}

// Run polls until ctx is cancelled. Each worker leases and processes items
// independently; when the queue is drained it waits one poll interval.
func (r *Runner) Run(ctx context.Context) {
	slog.Info("queue runner starting",
		slog.Int("workers", r.Workers),
		slog.Duration("poll_interval", r.PollInterval),
		slog.Int("max_retries", r.MaxRetries))

	var wg sync.WaitGroup
	for i := 0; i < r.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r.workerLoop(ctx, worker)
		}(i)
	}
	wg.Wait()
	slog.Info("queue runner stopped")
}

func (r *Runner) workerLoop(ctx context.Context, worker int) {
	for {
		processed, err := r.ProcessNext(ctx)
		if err != nil {
			slog.Error("queue worker iteration failed", slog.Int("worker", worker), slog.Any("error", err))
		}
		if processed && err == nil {
			// Keep draining while there is work.
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.PollInterval):
		}
	}
}

// ProcessNext leases and processes at most one queue item. It reports whether
// an item was leased. Handler failures are recorded on the item and never
// returned; the error return covers queue infrastructure only.
func (r *Runner) ProcessNext(ctx context.Context) (bool, error) {
	item, ok, err := r.Queue.LeaseNext(ctx)
	if err != nil {
		return false, fmt.Errorf("op=dbqueue.ProcessNext: %w", err)
	}
	if !ok {
		return false, nil
	}
	r.process(ctx, item)
	return true, nil
}

func (r *Runner) process(ctx context.Context, item domain.QueueItem) {
	ctx, span := r.tracer.Start(ctx, "dbqueue.process",
		trace.WithAttributes(
			attribute.String("queue.id", item.QueueID),
			attribute.String("queue.stage", string(item.Stage)),
			attribute.String("candidate.id", item.CandidateID),
			attribute.Int("queue.attempts", item.Attempts),
		))
	defer span.End()

	stage := string(item.Stage)
	observability.StagesStartedTotal.WithLabelValues(stage).Inc()

	handler, ok := r.Handlers[item.Stage]
	if !ok {
		// Unknown stage: fail terminally, a retry cannot help.
		r.fail(ctx, item, fmt.Errorf("op=dbqueue.process: no handler for stage %q: %w", item.Stage, domain.ErrInvalidArgument))
		return
	}

	if item.Stage == domain.StageTextExtract && item.Attempts == 1 {
		if err := r.Candidates.UpdateStatus(ctx, item.CandidateID, domain.CandidateProcessing, ""); err != nil {
			slog.Warn("mark candidate processing failed",
				slog.String("candidate_id", item.CandidateID), slog.Any("error", err))
		}
	}

	start := time.Now()
	err := handler.Execute(ctx, item.CandidateID)
	observability.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())

	if err != nil {
		r.fail(ctx, item, err)
		return
	}

	if err := r.Queue.Complete(ctx, item.QueueID); err != nil {
		slog.Error("complete queue item failed",
			slog.String("queue_id", item.QueueID), slog.Any("error", err))
		return
	}
	observability.StagesCompletedTotal.WithLabelValues(stage).Inc()
	slog.Info("stage completed",
		slog.String("queue_id", item.QueueID),
		slog.String("stage", stage),
		slog.String("candidate_id", item.CandidateID),
		slog.Duration("took", time.Since(start)))

	next, hasNext := item.Stage.Next()
	if !hasNext {
		return
	}
	if _, err := r.Queue.Enqueue(ctx, item.CandidateID, next); err != nil {
		slog.Error("enqueue successor failed",
			slog.String("candidate_id", item.CandidateID),
			slog.String("stage", string(next)),
			slog.Any("error", err))
		return
	}
	observability.QueueItemsEnqueuedTotal.WithLabelValues(string(next)).Inc()
}

// fail records the failure on the item and projects a terminal failure onto
// the candidate. The runner never re-readies an item itself; an operator or
// the reconciler calls Retry so irrecoverable errors do not thrash the queue.
func (r *Runner) fail(ctx context.Context, item domain.QueueItem, err error) {
	stage := string(item.Stage)
	kind, fatal := classifyFailure(err)
	observability.StagesFailedTotal.WithLabelValues(stage, kind).Inc()
	slog.Warn("stage failed",
		slog.String("queue_id", item.QueueID),
		slog.String("stage", stage),
		slog.String("candidate_id", item.CandidateID),
		slog.Int("attempts", item.Attempts),
		slog.String("kind", kind),
		slog.Bool("fatal", fatal),
		slog.Any("error", err))

	if failErr := r.Queue.Fail(ctx, item.QueueID, err.Error()); failErr != nil {
		slog.Error("mark queue item failed errored",
			slog.String("queue_id", item.QueueID), slog.Any("error", failErr))
		return
	}

	if !fatal && item.Attempts < r.MaxRetries {
		// Attempts remain; the item stays FAILED until Retry re-readies it.
		return
	}

	msg := fmt.Sprintf("stage %s failed: %s", stage, err.Error())
	if updErr := r.Candidates.UpdateStatus(ctx, item.CandidateID, domain.CandidateError, msg); updErr != nil {
		slog.Error("mark candidate error failed",
			slog.String("candidate_id", item.CandidateID), slog.Any("error", updErr))
	}
}

// classifyFailure maps an error onto a metric label and whether a retry can
// ever succeed. Fatal failures project onto the candidate immediately: the
// same input will fail the same way.
func classifyFailure(err error) (kind string, fatal bool) {
	switch {
	case errors.Is(err, domain.ErrInputMissing):
		return "input_missing", true
	case errors.Is(err, domain.ErrParseFailure):
		return "parse_failure", true
	case errors.Is(err, domain.ErrConfigMissing):
		return "config_missing", true
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument", true
	case errors.Is(err, domain.ErrNotFound):
		return "not_found", true
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "upstream_timeout", false
	case errors.Is(err, domain.ErrUpstreamTransient):
		return "upstream_transient", false
	case errors.Is(err, domain.ErrSchemaInvalid):
		return "schema_invalid", false
	case errors.Is(err, domain.ErrStorageFailure):
		return "storage_failure", false
	default:
		return "internal", false
	}
}
