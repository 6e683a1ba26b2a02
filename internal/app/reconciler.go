package app

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/observability"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// Reconciler is the periodic sweep that keeps the queue live:
//
//   - items stuck in RUNNING (worker crash, lost lease) are returned to READY
//     so another worker can pick them up;
//   - FAILED items that still have retry budget are re-readied. The runner
//     itself never retries, so this sweep is what turns transient upstream
//     failures into eventual progress.
//
// Stages are idempotent, so a reclaimed item that actually finished just
// re-runs harmlessly.
type Reconciler struct {
	queue          domain.QueueRepository
	candidates     domain.CandidateRepository
	stuckThreshold time.Duration
	interval       time.Duration
	maxRetries     int
	batchSize      int
}

// NewReconciler constructs a Reconciler. Non-positive durations fall back to
// a 10m threshold and a 1m sweep interval; maxRetries and batchSize fall back
// to 3 and 50.
func NewReconciler(queue domain.QueueRepository, candidates domain.CandidateRepository, stuckThreshold, interval time.Duration, maxRetries, batchSize int) *Reconciler {
	if queue == nil {
		return nil
	}
	if stuckThreshold <= 0 {
		stuckThreshold = 10 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Reconciler{
		queue:          queue,
		candidates:     candidates,
		stuckThreshold: stuckThreshold,
		interval:       interval,
		maxRetries:     maxRetries,
		batchSize:      batchSize,
	}
}

// Run sweeps immediately and then on every interval tick until ctx is
// cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	if r == nil || r.queue == nil {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("queue reconciler stopping")
			return
		case <-ticker.C:
			r.sweepOnce(ctx)
		}
	}
}

func (r *Reconciler) sweepOnce(ctx context.Context) {
	tracer := otel.Tracer("queue.reconciler")
	ctx, span := tracer.Start(ctx, "Reconciler.sweepOnce")
	defer span.End()
	span.SetAttributes(attribute.Float64("queue.stuck_threshold_seconds", r.stuckThreshold.Seconds()))

	cutoff := time.Now().Add(-r.stuckThreshold)
	n, err := r.queue.ResetStuckRunning(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		slog.Error("stuck item sweep failed", slog.Any("error", err))
	} else if n > 0 {
		observability.QueueItemsReclaimedTotal.Add(float64(n))
		slog.Warn("reclaimed stuck queue items",
			slog.Int64("count", n),
			slog.Duration("stuck_threshold", r.stuckThreshold))
	}
	span.SetAttributes(attribute.Int64("queue.items_reclaimed", n))

	span.SetAttributes(attribute.Int64("queue.items_retried", r.retryFailed(ctx)))
}

// retryFailed re-readies FAILED items that have attempts left. Items whose
// candidate was already projected to ERROR are left alone so irrecoverable
// failures stop consuming queue cycles.
func (r *Reconciler) retryFailed(ctx context.Context) int64 {
	items, err := r.queue.ListFailed(ctx, r.batchSize)
	if err != nil {
		slog.Error("failed item listing failed", slog.Any("error", err))
		return 0
	}

	var retried int64
	for _, it := range items {
		if it.Attempts >= r.maxRetries {
			continue
		}
		if r.candidates != nil {
			cand, err := r.candidates.Get(ctx, it.CandidateID)
			if err == nil && cand.Status == domain.CandidateError {
				continue
			}
		}
		if err := r.queue.Retry(ctx, it.QueueID); err != nil {
			slog.Error("re-ready failed item errored",
				slog.String("queue_id", it.QueueID), slog.Any("error", err))
			continue
		}
		retried++
		slog.Info("re-readied failed queue item",
			slog.String("queue_id", it.QueueID),
			slog.String("stage", string(it.Stage)),
			slog.String("candidate_id", it.CandidateID),
			slog.Int("attempts", it.Attempts),
			slog.String("last_error", it.LastError))
	}
	if retried > 0 {
		observability.QueueItemsRetriedTotal.Add(float64(retried))
	}
	return retried
}
