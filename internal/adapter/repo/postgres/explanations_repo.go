package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// ExplanationRepo persists the per-candidate score rationale.
type ExplanationRepo struct{ Pool PgxPool }

// NewExplanationRepo constructs an ExplanationRepo with the given pool.
func NewExplanationRepo(p PgxPool) *ExplanationRepo { return &ExplanationRepo{Pool: p} }

// Upsert writes the explanation, replacing any prior one for the candidate.
func (r *ExplanationRepo) Upsert(ctx domain.Context, e domain.Explanation) error {
	tracer := otel.Tracer("repo.explanations")
	ctx, span := tracer.Start(ctx, "explanations.Upsert")
	defer span.End()
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("op=explanation.upsert: %w", err)
	}
	q := `INSERT INTO explanations (candidate_id, explanation_json, created_at) VALUES ($1,$2,$3)
	ON CONFLICT (candidate_id) DO UPDATE SET explanation_json=EXCLUDED.explanation_json, created_at=EXCLUDED.created_at`
	_, err = r.Pool.Exec(ctx, q, e.CandidateID, body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=explanation.upsert: %w", err)
	}
	return nil
}

// Get loads the explanation for a candidate.
func (r *ExplanationRepo) Get(ctx domain.Context, candidateID string) (domain.Explanation, error) {
	tracer := otel.Tracer("repo.explanations")
	ctx, span := tracer.Start(ctx, "explanations.Get")
	defer span.End()
	q := `SELECT candidate_id, explanation_json, created_at FROM explanations WHERE candidate_id=$1`
	var e domain.Explanation
	var body []byte
	var createdAt time.Time
	err := r.Pool.QueryRow(ctx, q, candidateID).Scan(&e.CandidateID, &body, &createdAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Explanation{}, fmt.Errorf("op=explanation.get: %w", domain.ErrNotFound)
		}
		return domain.Explanation{}, fmt.Errorf("op=explanation.get: %w", err)
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &e); err != nil {
			return domain.Explanation{}, fmt.Errorf("op=explanation.get: %w", err)
		}
	}
	e.CreatedAt = createdAt
	return e, nil
}
