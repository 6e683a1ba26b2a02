package scoring

import (
	"math"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// DefaultWeights are the composite weights used when no configuration exists.
func DefaultWeights() domain.Weights {
	return domain.Weights{Must: 0.45, Nice: 0.20, Year: 0.20, Role: 0.15}
}

// TotalFit computes the composite score: weighted sum of the four sub-scores
// scaled to [0,100], capped when must gaps exist and the cap is enabled, and
// clamped to bounds.
func TotalFit(cfg domain.ScoreConfig, must, nice, year, role float64, hasMustGaps bool) int {
	raw := cfg.Weights.Must*must + cfg.Weights.Nice*nice + cfg.Weights.Year*year + cfg.Weights.Role*role
	total := int(math.Round(raw * 100))

	if cfg.MustCapEnabled && hasMustGaps && total > cfg.MustCapValue {
		total = cfg.MustCapValue
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return total
}
