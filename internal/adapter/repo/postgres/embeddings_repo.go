package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// EmbeddingRepo persists candidate vectors. Vectors are stored as JSON arrays;
// similarity math happens in-process, not in SQL.
type EmbeddingRepo struct{ Pool PgxPool }

// NewEmbeddingRepo constructs an EmbeddingRepo with the given pool.
func NewEmbeddingRepo(p PgxPool) *EmbeddingRepo { return &EmbeddingRepo{Pool: p} }

// Replace atomically swaps the candidate's embedding set: delete-then-insert
// in one transaction, so re-runs never leave a mixed set behind.
func (r *EmbeddingRepo) Replace(ctx domain.Context, candidateID string, embs []domain.Embedding) error {
	tracer := otel.Tracer("repo.embeddings")
	ctx, span := tracer.Start(ctx, "embeddings.Replace")
	defer span.End()
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=embedding.replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM embeddings WHERE candidate_id=$1`, candidateID); err != nil {
		return fmt.Errorf("op=embedding.replace: %w", err)
	}
	now := time.Now().UTC()
	for _, e := range embs {
		id := e.EmbeddingID
		if id == "" {
			id = uuid.New().String()
		}
		vecJSON, err := json.Marshal(e.Vector)
		if err != nil {
			return fmt.Errorf("op=embedding.replace: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO embeddings (embedding_id, candidate_id, kind, ref_id, vector, created_at) VALUES ($1,$2,$3,NULLIF($4,''),$5,$6)`,
			id, candidateID, string(e.Kind), e.RefID, vecJSON, now)
		if err != nil {
			return fmt.Errorf("op=embedding.replace: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=embedding.replace: %w", err)
	}
	return nil
}

// ListByCandidate returns all embeddings for a candidate.
func (r *EmbeddingRepo) ListByCandidate(ctx domain.Context, candidateID string) ([]domain.Embedding, error) {
	tracer := otel.Tracer("repo.embeddings")
	ctx, span := tracer.Start(ctx, "embeddings.ListByCandidate")
	defer span.End()
	q := `SELECT embedding_id, candidate_id, kind, COALESCE(ref_id,''), vector, created_at FROM embeddings WHERE candidate_id=$1 ORDER BY created_at, embedding_id`
	rows, err := r.Pool.Query(ctx, q, candidateID)
	if err != nil {
		return nil, fmt.Errorf("op=embedding.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Embedding
	for rows.Next() {
		var e domain.Embedding
		var kind string
		var vecJSON []byte
		if err := rows.Scan(&e.EmbeddingID, &e.CandidateID, &kind, &e.RefID, &vecJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=embedding.list: %w", err)
		}
		e.Kind = domain.EmbeddingKind(kind)
		if len(vecJSON) > 0 {
			if err := json.Unmarshal(vecJSON, &e.Vector); err != nil {
				return nil, fmt.Errorf("op=embedding.list: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=embedding.list: %w", err)
	}
	return out, nil
}
