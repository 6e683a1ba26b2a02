package domain

import "time"

// Typed extraction records. The LLM emits these as one JSON object which is
// validated once at the stage boundary; everything downstream works with the
// typed forms.

// MustRequirement is a hard-gate requirement extracted from the job text.
type MustRequirement struct {
	ID        string   `json:"id" validate:"required"`
	Text      string   `json:"text" validate:"required"`
	SkillTags []string `json:"skill_tags"`
}

// NiceRequirement is a soft-preference requirement extracted from the job text.
type NiceRequirement struct {
	ID        string   `json:"id" validate:"required"`
	Text      string   `json:"text" validate:"required"`
	SkillTags []string `json:"skill_tags"`
}

// JobRequirements is the structured form of the job posting.
// RoleExpectation is empty when the posting states none.
type JobRequirements struct {
	Must             []MustRequirement  `json:"must" validate:"dive"`
	Nice             []NiceRequirement  `json:"nice" validate:"dive"`
	RoleExpectation  string             `json:"role_expectation" validate:"omitempty,oneof=IC Lead Manager"`
	YearRequirements map[string]float64 `json:"year_requirements"`
}

// CandidateProfile is the structured form of the resume.
type CandidateProfile struct {
	Skills          []string           `json:"skills"`
	Roles           []string           `json:"roles"`
	ExperienceYears map[string]float64 `json:"experience_years"`
	Highlights      []string           `json:"highlights"`
	Concerns        []string           `json:"concerns"`
	Unknowns        []string           `json:"unknowns"`
}

// Evidence maps requirement/attribute ids to short verbatim quotes from the
// source texts.
type Evidence struct {
	Job       map[string]string `json:"job"`
	Candidate map[string]string `json:"candidate"`
}

// Extraction is the per-candidate structured extraction record, keyed by
// candidate id; one exists per candidate and is overwritten on re-runs.
type Extraction struct {
	CandidateID     string
	JobRequirements JobRequirements
	Profile         CandidateProfile
	Evidence        Evidence
	LLMModel        string
	ExtractVersion  string
	CreatedAt       time.Time
}
