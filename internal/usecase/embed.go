package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// EmbedService generates the vectors the nice scorer compares: one candidate
// summary vector plus one per nice requirement.
type EmbedService struct {
	Extractions domain.ExtractionRepository
	Embeddings  domain.EmbeddingRepository
	AI          domain.AIClient
}

// NewEmbedService constructs an EmbedService with its dependencies.
func NewEmbedService(e domain.ExtractionRepository, em domain.EmbeddingRepository, ai domain.AIClient) EmbedService {
	return EmbedService{Extractions: e, Embeddings: em, AI: ai}
}

// Execute embeds the candidate summary and every nice requirement in one
// batch, then atomically replaces the candidate's stored set.
func (s EmbedService) Execute(ctx domain.Context, candidateID string) error {
	ext, err := s.Extractions.Get(ctx, candidateID)
	if err != nil {
		return err
	}

	var texts []string
	var specs []domain.Embedding

	if summary := buildCandidateSummary(ext.Profile); summary != "" {
		texts = append(texts, summary)
		specs = append(specs, domain.Embedding{CandidateID: candidateID, Kind: domain.EmbeddingCandidateSummary})
	}
	for _, nice := range ext.JobRequirements.Nice {
		if nice.Text == "" {
			continue
		}
		texts = append(texts, nice.Text)
		specs = append(specs, domain.Embedding{CandidateID: candidateID, Kind: domain.EmbeddingNiceReq, RefID: nice.ID})
	}

	if len(texts) == 0 {
		// Nothing to embed is legal: the nice scorer treats a missing set as 0.
		return s.Embeddings.Replace(ctx, candidateID, nil)
	}

	vectors, err := s.AI.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("op=embed: got %d vectors for %d inputs: %w", len(vectors), len(texts), domain.ErrSchemaInvalid)
	}
	for i := range specs {
		specs[i].Vector = vectors[i]
	}
	return s.Embeddings.Replace(ctx, candidateID, specs)
}

// buildCandidateSummary flattens the profile into one embeddable string.
// Empty sections are skipped entirely.
func buildCandidateSummary(p domain.CandidateProfile) string {
	var parts []string
	if len(p.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(p.Skills, ", "))
	}
	if len(p.Highlights) > 0 {
		parts = append(parts, "Highlights: "+strings.Join(p.Highlights, ". "))
	}
	if len(p.Roles) > 0 {
		parts = append(parts, "Roles: "+strings.Join(p.Roles, ", "))
	}
	return strings.Join(parts, " | ")
}
