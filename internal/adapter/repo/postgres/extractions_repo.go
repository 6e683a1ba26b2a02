package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// ExtractionRepo persists the structured extraction record per candidate.
type ExtractionRepo struct{ Pool PgxPool }

// NewExtractionRepo constructs an ExtractionRepo with the given pool.
func NewExtractionRepo(p PgxPool) *ExtractionRepo { return &ExtractionRepo{Pool: p} }

// Upsert writes the extraction record, replacing any prior one for the
// candidate so stage re-runs converge on the latest result.
func (r *ExtractionRepo) Upsert(ctx domain.Context, e domain.Extraction) error {
	tracer := otel.Tracer("repo.extractions")
	ctx, span := tracer.Start(ctx, "extractions.Upsert")
	defer span.End()
	reqJSON, err := json.Marshal(e.JobRequirements)
	if err != nil {
		return fmt.Errorf("op=extraction.upsert: %w", err)
	}
	profJSON, err := json.Marshal(e.Profile)
	if err != nil {
		return fmt.Errorf("op=extraction.upsert: %w", err)
	}
	evJSON, err := json.Marshal(e.Evidence)
	if err != nil {
		return fmt.Errorf("op=extraction.upsert: %w", err)
	}
	q := `INSERT INTO extractions (candidate_id, job_requirements_json, candidate_profile_json, evidence_json, llm_model, extract_version, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7)
	ON CONFLICT (candidate_id) DO UPDATE SET
		job_requirements_json=EXCLUDED.job_requirements_json,
		candidate_profile_json=EXCLUDED.candidate_profile_json,
		evidence_json=EXCLUDED.evidence_json,
		llm_model=EXCLUDED.llm_model,
		extract_version=EXCLUDED.extract_version,
		created_at=EXCLUDED.created_at`
	_, err = r.Pool.Exec(ctx, q, e.CandidateID, reqJSON, profJSON, evJSON, e.LLMModel, e.ExtractVersion, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=extraction.upsert: %w", err)
	}
	return nil
}

// Get loads the extraction record for a candidate.
func (r *ExtractionRepo) Get(ctx domain.Context, candidateID string) (domain.Extraction, error) {
	tracer := otel.Tracer("repo.extractions")
	ctx, span := tracer.Start(ctx, "extractions.Get")
	defer span.End()
	q := `SELECT candidate_id, job_requirements_json, candidate_profile_json, evidence_json, COALESCE(llm_model,''), COALESCE(extract_version,''), created_at FROM extractions WHERE candidate_id=$1`
	var e domain.Extraction
	var reqJSON, profJSON, evJSON []byte
	err := r.Pool.QueryRow(ctx, q, candidateID).Scan(&e.CandidateID, &reqJSON, &profJSON, &evJSON, &e.LLMModel, &e.ExtractVersion, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Extraction{}, fmt.Errorf("op=extraction.get: %w", domain.ErrNotFound)
		}
		return domain.Extraction{}, fmt.Errorf("op=extraction.get: %w", err)
	}
	if len(reqJSON) > 0 {
		if err := json.Unmarshal(reqJSON, &e.JobRequirements); err != nil {
			return domain.Extraction{}, fmt.Errorf("op=extraction.get: %w", err)
		}
	}
	if len(profJSON) > 0 {
		if err := json.Unmarshal(profJSON, &e.Profile); err != nil {
			return domain.Extraction{}, fmt.Errorf("op=extraction.get: %w", err)
		}
	}
	if len(evJSON) > 0 {
		if err := json.Unmarshal(evJSON, &e.Evidence); err != nil {
			return domain.Extraction{}, fmt.Errorf("op=extraction.get: %w", err)
		}
	}
	return e, nil
}
