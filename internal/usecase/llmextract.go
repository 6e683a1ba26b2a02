package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// extractVersion tags stored extractions with the prompt/schema generation
// that produced them.
const extractVersion = "v1"

// maxPromptTokens bounds the user prompt; resume text is truncated to fit.
const maxPromptTokens = 100_000

// LLMExtractService runs structured extraction: job text plus resume text in,
// validated JobRequirements/CandidateProfile/Evidence out.
type LLMExtractService struct {
	Candidates  domain.CandidateRepository
	Jobs        domain.JobRepository
	Documents   domain.DocumentRepository
	Extractions domain.ExtractionRepository
	Storage     domain.Storage
	AI          domain.AIClient
	Model       string

	validate *validator.Validate
	counter  *tokencount.Counter
}

// NewLLMExtractService constructs an LLMExtractService with its dependencies.
func NewLLMExtractService(
	c domain.CandidateRepository,
	j domain.JobRepository,
	d domain.DocumentRepository,
	e domain.ExtractionRepository,
	st domain.Storage,
	ai domain.AIClient,
	model string,
) LLMExtractService {
	return LLMExtractService{
		Candidates:  c,
		Jobs:        j,
		Documents:   d,
		Extractions: e,
		Storage:     st,
		AI:          ai,
		Model:       model,
		validate:    validator.New(),
		counter:     tokencount.NewCounter(),
	}
}

// extractionResponse is the wire shape of the LLM extraction reply.
type extractionResponse struct {
	JobRequirements  domain.JobRequirements  `json:"job_requirements" validate:"required"`
	CandidateProfile domain.CandidateProfile `json:"candidate_profile" validate:"required"`
	Evidence         domain.Evidence         `json:"evidence"`
}

// Execute calls the LLM with the combined resume text and the raw job text,
// validates the reply once at this boundary, and upserts the extraction.
func (s LLMExtractService) Execute(ctx domain.Context, candidateID string) error {
	cand, err := s.Candidates.Get(ctx, candidateID)
	if err != nil {
		return err
	}
	job, err := s.Jobs.Get(ctx, cand.JobID)
	if err != nil {
		return err
	}
	resumeText, err := s.combinedText(ctx, candidateID)
	if err != nil {
		return err
	}

	resumeText, err = s.fitToBudget(job.JobTextRaw, resumeText)
	if err != nil {
		return err
	}
	userPrompt := buildExtractionUserPrompt(job.JobTextRaw, resumeText)

	raw, err := s.AI.ExtractJSON(ctx, extractionSystemPrompt, userPrompt)
	if err != nil {
		return err
	}

	var resp extractionResponse
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&resp); err != nil {
		return fmt.Errorf("op=llmextract: decode reply: %w: %v", domain.ErrSchemaInvalid, err)
	}
	if err := s.validate.Struct(resp); err != nil {
		return fmt.Errorf("op=llmextract: validate reply: %w: %v", domain.ErrSchemaInvalid, err)
	}

	// Persist the evidence blob alongside the typed record for auditing.
	if evJSON, err := json.Marshal(resp.Evidence); err == nil {
		if _, err := s.Storage.WriteEvidence(ctx, candidateID, string(evJSON)); err != nil {
			slog.Warn("evidence blob write failed", slog.String("candidate_id", candidateID), slog.Any("error", err))
		}
	}

	return s.Extractions.Upsert(ctx, domain.Extraction{
		CandidateID:     candidateID,
		JobRequirements: resp.JobRequirements,
		Profile:         resp.CandidateProfile,
		Evidence:        resp.Evidence,
		LLMModel:        s.Model,
		ExtractVersion:  extractVersion,
	})
}

// combinedText rebuilds the labelled per-document text blob from the text
// URIs recorded by the text-extract stage.
func (s LLMExtractService) combinedText(ctx domain.Context, candidateID string) (string, error) {
	docs, err := s.Documents.ListByCandidate(ctx, candidateID)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, doc := range docs {
		if doc.TextURI == "" {
			continue
		}
		text, err := s.Storage.ReadText(ctx, doc.TextURI)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("[%s]\n%s", strings.ToUpper(doc.Type), text))
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("op=llmextract: no extracted text for candidate %s: %w", candidateID, domain.ErrInputMissing)
	}
	return strings.Join(parts, "\n\n---\n\n"), nil
}

// fitToBudget truncates the resume text so the whole prompt stays inside the
// token budget. The job text is never truncated.
func (s LLMExtractService) fitToBudget(jobText, resumeText string) (string, error) {
	total, err := s.counter.CountChatTokens(extractionSystemPrompt, buildExtractionUserPrompt(jobText, resumeText), s.Model)
	if err != nil {
		return "", fmt.Errorf("op=llmextract: count tokens: %w", err)
	}
	if total <= maxPromptTokens {
		return resumeText, nil
	}
	over := total - maxPromptTokens
	resumeTokens, err := s.counter.CountTokens(resumeText, s.Model)
	if err != nil {
		return "", fmt.Errorf("op=llmextract: count tokens: %w", err)
	}
	keep := resumeTokens - over
	if keep <= 0 {
		return "", fmt.Errorf("op=llmextract: job text alone exceeds prompt budget: %w", domain.ErrInvalidArgument)
	}
	slog.Warn("resume text truncated to fit prompt budget",
		slog.Int("resume_tokens", resumeTokens),
		slog.Int("kept_tokens", keep))
	return s.counter.TruncateToTokens(resumeText, s.Model, keep)
}
