package usecase

import (
	"log/slog"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/observability"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/scoring"
)

// ScoreService computes the deterministic sub-scores and composite for a
// candidate from the extraction and embedding records.
type ScoreService struct {
	Extractions  domain.ExtractionRepository
	Embeddings   domain.EmbeddingRepository
	Scores       domain.ScoreRepository
	ScoreConfigs domain.ScoreConfigRepository
}

// NewScoreService constructs a ScoreService with its dependencies.
func NewScoreService(
	e domain.ExtractionRepository,
	em domain.EmbeddingRepository,
	s domain.ScoreRepository,
	c domain.ScoreConfigRepository,
) ScoreService {
	return ScoreService{Extractions: e, Embeddings: em, Scores: s, ScoreConfigs: c}
}

// Execute scores the candidate against the latest score configuration and
// upserts the result. Re-runs with the same inputs produce the same row.
func (s ScoreService) Execute(ctx domain.Context, candidateID string) error {
	ext, err := s.Extractions.Get(ctx, candidateID)
	if err != nil {
		return err
	}
	cfg, err := s.ScoreConfigs.Latest(ctx)
	if err != nil {
		return err
	}

	must, gaps := scoring.MustScore(ext.JobRequirements, ext.Profile)
	year := scoring.YearScore(ext.JobRequirements, ext.Profile)
	role := scoring.RoleScore(ext.JobRequirements, ext.Profile, cfg.RoleDistance)

	candidateVec, niceVecs, err := s.loadVectors(ctx, candidateID)
	if err != nil {
		return err
	}
	nice := scoring.NiceScore(candidateVec, niceVecs, cfg.NiceTopN)

	total := scoring.TotalFit(cfg, must, nice, year, role, len(gaps) > 0)
	observability.TotalFitHistogram.Observe(float64(total))
	slog.Info("candidate scored",
		slog.String("candidate_id", candidateID),
		slog.Float64("must", must),
		slog.Float64("nice", nice),
		slog.Float64("year", year),
		slog.Float64("role", role),
		slog.Int("total_fit", total),
		slog.Int("config_version", cfg.Version))

	return s.Scores.Upsert(ctx, domain.Score{
		CandidateID:        candidateID,
		MustScore:          must,
		NiceScore:          nice,
		YearScore:          year,
		RoleScore:          role,
		TotalFit0100:       total,
		MustGaps:           gaps,
		ScoreConfigVersion: cfg.Version,
	})
}

func (s ScoreService) loadVectors(ctx domain.Context, candidateID string) ([]float32, [][]float32, error) {
	embs, err := s.Embeddings.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, nil, err
	}
	var candidate []float32
	var nice [][]float32
	for _, e := range embs {
		switch e.Kind {
		case domain.EmbeddingCandidateSummary:
			candidate = e.Vector
		case domain.EmbeddingNiceReq:
			nice = append(nice, e.Vector)
		}
	}
	return candidate, nice, nil
}
