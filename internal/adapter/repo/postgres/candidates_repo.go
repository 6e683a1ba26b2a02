package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// CandidateRepo persists and loads candidates.
type CandidateRepo struct{ Pool PgxPool }

// NewCandidateRepo constructs a CandidateRepo with the given pool.
func NewCandidateRepo(p PgxPool) *CandidateRepo { return &CandidateRepo{Pool: p} }

// Get loads a candidate by id.
func (r *CandidateRepo) Get(ctx domain.Context, candidateID string) (domain.Candidate, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.Get")
	defer span.End()
	q := `SELECT candidate_id, job_id, COALESCE(display_name,''), status, COALESCE(error_message,''), submitted_at FROM candidates WHERE candidate_id=$1`
	var c domain.Candidate
	err := r.Pool.QueryRow(ctx, q, candidateID).Scan(&c.CandidateID, &c.JobID, &c.DisplayName, &c.Status, &c.ErrorMessage, &c.SubmittedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", domain.ErrNotFound)
		}
		return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", err)
	}
	return c, nil
}

// UpdateStatus sets the coarse candidate status and error message. The error
// message is truncated the same way queue errors are.
func (r *CandidateRepo) UpdateStatus(ctx domain.Context, candidateID string, status domain.CandidateStatus, errMsg string) error {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.UpdateStatus")
	defer span.End()
	errMsg = truncateErr(errMsg)
	q := `UPDATE candidates SET status=$2, error_message=$3 WHERE candidate_id=$1`
	tag, err := r.Pool.Exec(ctx, q, candidateID, status, errMsg)
	if err != nil {
		return fmt.Errorf("op=candidate.update_status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=candidate.update_status: %w", domain.ErrNotFound)
	}
	return nil
}

// Create inserts a candidate, generating an id when none is provided. Used by
// ingestion tooling and tests.
func (r *CandidateRepo) Create(ctx domain.Context, c domain.Candidate) (string, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.Create")
	defer span.End()
	id := c.CandidateID
	if id == "" {
		id = uuid.New().String()
	}
	status := c.Status
	if status == "" {
		status = domain.CandidateNew
	}
	q := `INSERT INTO candidates (candidate_id, job_id, display_name, status, submitted_at) VALUES ($1,$2,$3,$4,$5)`
	_, err := r.Pool.Exec(ctx, q, id, c.JobID, c.DisplayName, status, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=candidate.create: %w", err)
	}
	return id, nil
}
