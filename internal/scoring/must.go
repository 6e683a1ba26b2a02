// Package scoring implements the deterministic scoring engine: four
// sub-scores in [0,1] and a weighted composite in [0,100]. Everything here is
// pure computation; no I/O, no clocks, no randomness.
package scoring

import (
	"strings"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// MustScore returns the fraction of must requirements the candidate satisfies
// and the texts of the unsatisfied ones. A requirement is satisfied when one
// of its skill tags matches a candidate skill (exactly or as a bidirectional
// substring) and any year requirement on that tag is met.
func MustScore(req domain.JobRequirements, prof domain.CandidateProfile) (float64, []string) {
	if len(req.Must) == 0 {
		return 1.0, nil
	}

	skills := make(map[string]bool, len(prof.Skills))
	for _, s := range prof.Skills {
		skills[strings.ToLower(s)] = true
	}
	years := make(map[string]float64, len(prof.ExperienceYears))
	for k, v := range prof.ExperienceYears {
		years[strings.ToLower(k)] = v
	}
	yearReqs := make(map[string]float64, len(req.YearRequirements))
	for k, v := range req.YearRequirements {
		yearReqs[strings.ToLower(k)] = v
	}

	satisfied := 0
	var gaps []string
	for _, m := range req.Must {
		tags := make([]string, 0, len(m.SkillTags))
		for _, t := range m.SkillTags {
			tags = append(tags, strings.ToLower(t))
		}

		match := false
		for _, tag := range tags {
			if skills[tag] {
				match = true
				break
			}
		}
		if !match {
			for _, tag := range tags {
				for skill := range skills {
					if strings.Contains(skill, tag) || strings.Contains(tag, skill) {
						match = true
						break
					}
				}
				if match {
					break
				}
			}
		}

		if !match {
			gaps = append(gaps, m.Text)
			continue
		}

		yearOK := true
		for _, tag := range tags {
			required, has := yearReqs[tag]
			if !has || required == 0 {
				continue
			}
			actual, known := years[tag]
			if !known || actual < required {
				yearOK = false
				break
			}
		}
		if yearOK {
			satisfied++
		} else {
			gaps = append(gaps, m.Text)
		}
	}

	return float64(satisfied) / float64(len(req.Must)), gaps
}
