package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// DocumentRepo persists and loads candidate documents.
type DocumentRepo struct{ Pool PgxPool }

// NewDocumentRepo constructs a DocumentRepo with the given pool.
func NewDocumentRepo(p PgxPool) *DocumentRepo { return &DocumentRepo{Pool: p} }

// ListByCandidate returns all documents for a candidate, oldest first.
func (r *DocumentRepo) ListByCandidate(ctx domain.Context, candidateID string) ([]domain.Document, error) {
	tracer := otel.Tracer("repo.documents")
	ctx, span := tracer.Start(ctx, "documents.ListByCandidate")
	defer span.End()
	q := `SELECT document_id, candidate_id, type, original_filename, object_uri, COALESCE(text_uri,''), created_at FROM documents WHERE candidate_id=$1 ORDER BY created_at`
	rows, err := r.Pool.Query(ctx, q, candidateID)
	if err != nil {
		return nil, fmt.Errorf("op=document.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.DocumentID, &d.CandidateID, &d.Type, &d.OriginalFilename, &d.ObjectURI, &d.TextURI, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=document.list: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=document.list: %w", err)
	}
	return out, nil
}

// SetTextURI records where the extracted plain text for a document lives.
func (r *DocumentRepo) SetTextURI(ctx domain.Context, documentID, textURI string) error {
	tracer := otel.Tracer("repo.documents")
	ctx, span := tracer.Start(ctx, "documents.SetTextURI")
	defer span.End()
	q := `UPDATE documents SET text_uri=$2 WHERE document_id=$1`
	tag, err := r.Pool.Exec(ctx, q, documentID, textURI)
	if err != nil {
		return fmt.Errorf("op=document.set_text_uri: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=document.set_text_uri: %w", domain.ErrNotFound)
	}
	return nil
}

// Create inserts a document record, generating an id when none is provided.
// Used by ingestion tooling and tests.
func (r *DocumentRepo) Create(ctx domain.Context, d domain.Document) (string, error) {
	tracer := otel.Tracer("repo.documents")
	ctx, span := tracer.Start(ctx, "documents.Create")
	defer span.End()
	id := d.DocumentID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO documents (document_id, candidate_id, type, original_filename, object_uri, text_uri, created_at) VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7)`
	_, err := r.Pool.Exec(ctx, q, id, d.CandidateID, d.Type, d.OriginalFilename, d.ObjectURI, d.TextURI, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=document.create: %w", err)
	}
	return id, nil
}
