// Package usecase contains the pipeline stage services. Each service is the
// handler for one queue stage: it loads its inputs, does the work, and
// upserts its outputs so re-runs converge on the same state.
package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// TextExtractService converts every uploaded document of a candidate into
// plain text and stores a combined text blob for the extraction stage.
type TextExtractService struct {
	Documents domain.DocumentRepository
	Storage   domain.Storage
	Extractor domain.TextExtractor
}

// NewTextExtractService constructs a TextExtractService with its dependencies.
func NewTextExtractService(d domain.DocumentRepository, s domain.Storage, e domain.TextExtractor) TextExtractService {
	return TextExtractService{Documents: d, Storage: s, Extractor: e}
}

// Execute extracts text from all documents for the candidate. Documents that
// fail to parse are skipped; the stage fails only when none yields text.
func (s TextExtractService) Execute(ctx domain.Context, candidateID string) error {
	docs, err := s.Documents.ListByCandidate(ctx, candidateID)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("op=textextract: candidate %s has no documents: %w", candidateID, domain.ErrInputMissing)
	}

	var parts []string
	for _, doc := range docs {
		content, err := s.Storage.ReadRaw(ctx, doc.ObjectURI)
		if err != nil {
			return err
		}
		text, err := s.Extractor.Extract(ctx, doc.OriginalFilename, content)
		if err != nil {
			// Transient upstream failures abort the stage so the item can be
			// retried; per-document parse failures just skip the document.
			if !isParseFailure(err) {
				return err
			}
			slog.Warn("document parse failed, skipping",
				slog.String("candidate_id", candidateID),
				slog.String("document_id", doc.DocumentID),
				slog.Any("error", err))
			continue
		}

		textURI, err := s.Storage.WriteText(ctx, candidateID, text)
		if err != nil {
			return err
		}
		if err := s.Documents.SetTextURI(ctx, doc.DocumentID, textURI); err != nil {
			return err
		}
		parts = append(parts, fmt.Sprintf("[%s]\n%s", strings.ToUpper(doc.Type), text))
	}

	if len(parts) == 0 {
		return fmt.Errorf("op=textextract: no text could be extracted from any document: %w", domain.ErrParseFailure)
	}

	// The combined blob is rebuilt by the next stage from per-document URIs;
	// storing it here gives operators one artifact to inspect.
	combined := strings.Join(parts, "\n\n---\n\n")
	if _, err := s.Storage.WriteText(ctx, candidateID, combined); err != nil {
		return err
	}
	return nil
}

func isParseFailure(err error) bool {
	return errors.Is(err, domain.ErrParseFailure) || errors.Is(err, domain.ErrInputMissing)
}
