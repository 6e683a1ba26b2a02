package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// JobRepo loads job postings. Postings are read-only from the pipeline's view.
type JobRepo struct{ Pool PgxPool }

// NewJobRepo constructs a JobRepo with the given pool.
func NewJobRepo(p PgxPool) *JobRepo { return &JobRepo{Pool: p} }

// Get loads a job posting by id.
func (r *JobRepo) Get(ctx domain.Context, jobID string) (domain.JobPosting, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Get")
	defer span.End()
	q := `SELECT job_id, title, job_text_raw, created_at FROM jobs WHERE job_id=$1`
	var j domain.JobPosting
	err := r.Pool.QueryRow(ctx, q, jobID).Scan(&j.JobID, &j.Title, &j.JobTextRaw, &j.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.JobPosting{}, fmt.Errorf("op=job.get: %w", domain.ErrNotFound)
		}
		return domain.JobPosting{}, fmt.Errorf("op=job.get: %w", err)
	}
	return j, nil
}

// Create inserts a job posting, generating an id when none is provided. Used
// by ingestion tooling and tests.
func (r *JobRepo) Create(ctx domain.Context, j domain.JobPosting) (string, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Create")
	defer span.End()
	id := j.JobID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO jobs (job_id, title, job_text_raw, created_at, updated_at) VALUES ($1,$2,$3,$4,$4)`
	_, err := r.Pool.Exec(ctx, q, id, j.Title, j.JobTextRaw, now)
	if err != nil {
		return "", fmt.Errorf("op=job.create: %w", err)
	}
	return id, nil
}
