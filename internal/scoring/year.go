package scoring

import (
	"strings"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// YearScore linearly clips actual/required years per required skill and
// averages. Skills with no candidate data score 0; no requirements at all
// scores 1.
func YearScore(req domain.JobRequirements, prof domain.CandidateProfile) float64 {
	if len(req.YearRequirements) == 0 {
		return 1.0
	}

	actual := make(map[string]float64, len(prof.ExperienceYears))
	for k, v := range prof.ExperienceYears {
		actual[strings.ToLower(k)] = v
	}

	var sum float64
	n := 0
	for skill, required := range req.YearRequirements {
		if required <= 0 {
			continue
		}
		n++
		a, ok := actual[strings.ToLower(skill)]
		if !ok {
			continue // conservative zero
		}
		s := a / required
		if s > 1 {
			s = 1
		}
		if s < 0 {
			s = 0
		}
		sum += s
	}
	if n == 0 {
		return 1.0
	}
	return sum / float64(n)
}
