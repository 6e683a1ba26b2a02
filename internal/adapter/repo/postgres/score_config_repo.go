package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// ScoreConfigRepo stores immutable scoring configuration versions.
type ScoreConfigRepo struct{ Pool PgxPool }

// NewScoreConfigRepo constructs a ScoreConfigRepo with the given pool.
func NewScoreConfigRepo(p PgxPool) *ScoreConfigRepo { return &ScoreConfigRepo{Pool: p} }

// Latest returns the highest-version config. ErrConfigMissing when the table
// is empty.
func (r *ScoreConfigRepo) Latest(ctx domain.Context) (domain.ScoreConfig, error) {
	tracer := otel.Tracer("repo.score_config")
	ctx, span := tracer.Start(ctx, "score_config.Latest")
	defer span.End()
	q := `SELECT version, weights_json, must_cap_enabled, must_cap_value, nice_top_n, role_distance_json, created_at FROM score_config ORDER BY version DESC LIMIT 1`
	var c domain.ScoreConfig
	var weightsJSON, roleJSON []byte
	err := r.Pool.QueryRow(ctx, q).Scan(&c.Version, &weightsJSON, &c.MustCapEnabled, &c.MustCapValue, &c.NiceTopN, &roleJSON, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ScoreConfig{}, fmt.Errorf("op=score_config.latest: %w", domain.ErrConfigMissing)
		}
		return domain.ScoreConfig{}, fmt.Errorf("op=score_config.latest: %w", err)
	}
	if err := json.Unmarshal(weightsJSON, &c.Weights); err != nil {
		return domain.ScoreConfig{}, fmt.Errorf("op=score_config.latest: %w", err)
	}
	if err := json.Unmarshal(roleJSON, &c.RoleDistance); err != nil {
		return domain.ScoreConfig{}, fmt.Errorf("op=score_config.latest: %w", err)
	}
	return c, nil
}

// Create inserts a new config version and returns the assigned version number.
// Existing versions are never updated; tuning always appends.
func (r *ScoreConfigRepo) Create(ctx domain.Context, c domain.ScoreConfig) (int, error) {
	tracer := otel.Tracer("repo.score_config")
	ctx, span := tracer.Start(ctx, "score_config.Create")
	defer span.End()
	weightsJSON, err := json.Marshal(c.Weights)
	if err != nil {
		return 0, fmt.Errorf("op=score_config.create: %w", err)
	}
	roleJSON, err := json.Marshal(c.RoleDistance)
	if err != nil {
		return 0, fmt.Errorf("op=score_config.create: %w", err)
	}
	q := `INSERT INTO score_config (weights_json, must_cap_enabled, must_cap_value, nice_top_n, role_distance_json, created_at) VALUES ($1,$2,$3,$4,$5,$6) RETURNING version`
	var version int
	err = r.Pool.QueryRow(ctx, q, weightsJSON, c.MustCapEnabled, c.MustCapValue, c.NiceTopN, roleJSON, time.Now().UTC()).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("op=score_config.create: %w", err)
	}
	return version, nil
}
