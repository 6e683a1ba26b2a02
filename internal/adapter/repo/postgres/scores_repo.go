package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// ScoreRepo persists the deterministic per-candidate scores.
type ScoreRepo struct{ Pool PgxPool }

// NewScoreRepo constructs a ScoreRepo with the given pool.
func NewScoreRepo(p PgxPool) *ScoreRepo { return &ScoreRepo{Pool: p} }

// Upsert writes the score row, replacing any prior one for the candidate.
func (r *ScoreRepo) Upsert(ctx domain.Context, s domain.Score) error {
	tracer := otel.Tracer("repo.scores")
	ctx, span := tracer.Start(ctx, "scores.Upsert")
	defer span.End()
	gaps := s.MustGaps
	if gaps == nil {
		gaps = []string{}
	}
	gapsJSON, err := json.Marshal(gaps)
	if err != nil {
		return fmt.Errorf("op=score.upsert: %w", err)
	}
	q := `INSERT INTO scores (candidate_id, must_score, nice_score, year_score, role_score, total_fit_0_100, must_gaps_json, score_config_version, computed_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (candidate_id) DO UPDATE SET
		must_score=EXCLUDED.must_score,
		nice_score=EXCLUDED.nice_score,
		year_score=EXCLUDED.year_score,
		role_score=EXCLUDED.role_score,
		total_fit_0_100=EXCLUDED.total_fit_0_100,
		must_gaps_json=EXCLUDED.must_gaps_json,
		score_config_version=EXCLUDED.score_config_version,
		computed_at=EXCLUDED.computed_at`
	_, err = r.Pool.Exec(ctx, q, s.CandidateID, s.MustScore, s.NiceScore, s.YearScore, s.RoleScore, s.TotalFit0100, gapsJSON, s.ScoreConfigVersion, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=score.upsert: %w", err)
	}
	return nil
}

// Get loads the score row for a candidate.
func (r *ScoreRepo) Get(ctx domain.Context, candidateID string) (domain.Score, error) {
	tracer := otel.Tracer("repo.scores")
	ctx, span := tracer.Start(ctx, "scores.Get")
	defer span.End()
	q := `SELECT candidate_id, must_score, nice_score, year_score, role_score, total_fit_0_100, must_gaps_json, score_config_version, computed_at FROM scores WHERE candidate_id=$1`
	var s domain.Score
	var gapsJSON []byte
	err := r.Pool.QueryRow(ctx, q, candidateID).Scan(&s.CandidateID, &s.MustScore, &s.NiceScore, &s.YearScore, &s.RoleScore, &s.TotalFit0100, &gapsJSON, &s.ScoreConfigVersion, &s.ComputedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Score{}, fmt.Errorf("op=score.get: %w", domain.ErrNotFound)
		}
		return domain.Score{}, fmt.Errorf("op=score.get: %w", err)
	}
	if len(gapsJSON) > 0 {
		if err := json.Unmarshal(gapsJSON, &s.MustGaps); err != nil {
			return domain.Score{}, fmt.Errorf("op=score.get: %w", err)
		}
	}
	return s, nil
}
