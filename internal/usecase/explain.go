package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// ExplainService produces the recruiter-facing rationale for a score and
// marks the candidate DONE, completing the pipeline.
type ExplainService struct {
	Candidates   domain.CandidateRepository
	Extractions  domain.ExtractionRepository
	Scores       domain.ScoreRepository
	Explanations domain.ExplanationRepository
	AI           domain.AIClient
}

// NewExplainService constructs an ExplainService with its dependencies.
func NewExplainService(
	c domain.CandidateRepository,
	e domain.ExtractionRepository,
	s domain.ScoreRepository,
	ex domain.ExplanationRepository,
	ai domain.AIClient,
) ExplainService {
	return ExplainService{Candidates: c, Extractions: e, Scores: s, Explanations: ex, AI: ai}
}

// explanationResponse is the wire shape of the LLM explanation reply.
type explanationResponse struct {
	Summary   string   `json:"summary"`
	Strengths []string `json:"strengths"`
	Concerns  []string `json:"concerns"`
	Unknowns  []string `json:"unknowns"`
	MustGaps  []string `json:"must_gaps"`
}

// Execute generates and stores the explanation. Must gaps always come from
// the score record, never from the model, so the rationale cannot contradict
// the number.
func (s ExplainService) Execute(ctx domain.Context, candidateID string) error {
	ext, err := s.Extractions.Get(ctx, candidateID)
	if err != nil {
		return err
	}
	score, err := s.Scores.Get(ctx, candidateID)
	if err != nil {
		return err
	}

	scores := map[string]any{
		"must_score":      score.MustScore,
		"nice_score":      score.NiceScore,
		"year_score":      score.YearScore,
		"role_score":      score.RoleScore,
		"total_fit_0_100": score.TotalFit0100,
		"must_gaps":       score.MustGaps,
	}
	userPrompt, err := buildExplanationUserPrompt(ext.JobRequirements, ext.Profile, scores, ext.Evidence)
	if err != nil {
		return err
	}

	raw, err := s.AI.ExtractJSON(ctx, explanationSystemPrompt, userPrompt)
	if err != nil {
		return err
	}
	var resp explanationResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return fmt.Errorf("op=explain: decode reply: %w: %v", domain.ErrSchemaInvalid, err)
	}
	if strings.TrimSpace(resp.Summary) == "" {
		return fmt.Errorf("op=explain: empty summary: %w", domain.ErrSchemaInvalid)
	}

	if err := s.Explanations.Upsert(ctx, domain.Explanation{
		CandidateID: candidateID,
		Summary:     resp.Summary,
		Strengths:   capList(resp.Strengths, 3),
		Concerns:    capList(resp.Concerns, 3),
		Unknowns:    capList(resp.Unknowns, 5),
		MustGaps:    score.MustGaps,
	}); err != nil {
		return err
	}

	return s.Candidates.UpdateStatus(ctx, candidateID, domain.CandidateDone, "")
}

func capList(ss []string, n int) []string {
	if len(ss) > n {
		return ss[:n]
	}
	return ss
}
