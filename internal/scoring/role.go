package scoring

import (
	"strings"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// DefaultRoleDistance is the built-in role distance matrix, used when no
// score configuration overrides it.
func DefaultRoleDistance() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"IC":      {"IC": 1.0, "Lead": 0.7, "Manager": 0.3},
		"Lead":    {"IC": 0.7, "Lead": 1.0, "Manager": 0.7},
		"Manager": {"IC": 0.3, "Lead": 0.7, "Manager": 1.0},
	}
}

// RoleScore compares the job's role expectation to the candidate's roles via
// a distance matrix, taking the best match. No expectation scores 1; no
// candidate roles scores a neutral 0.5.
func RoleScore(req domain.JobRequirements, prof domain.CandidateProfile, distance map[string]map[string]float64) float64 {
	if req.RoleExpectation == "" {
		return 1.0
	}
	if len(prof.Roles) == 0 {
		return 0.5
	}
	if distance == nil {
		distance = DefaultRoleDistance()
	}

	expected := normalizeRole(req.RoleExpectation)
	best := 0.0
	for _, r := range prof.Roles {
		role := normalizeRole(r)
		if row, ok := distance[expected]; ok {
			if s, ok := row[role]; ok {
				if s > best {
					best = s
				}
				continue
			}
		}
		if role == expected {
			best = 1.0
		}
	}

	if best == 0.0 {
		// Roles outside the matrix: exact (case-insensitive) match on the raw
		// strings still counts; anything else is neutral.
		for _, r := range prof.Roles {
			if strings.EqualFold(r, expected) {
				return 1.0
			}
		}
		return 0.5
	}
	return best
}

// normalizeRole maps common variations onto the three canonical roles.
func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "ic", "individual contributor", "engineer", "developer":
		return "IC"
	case "lead", "tech lead", "team lead", "senior":
		return "Lead"
	case "manager", "engineering manager", "em", "director":
		return "Manager"
	}
	return role
}
