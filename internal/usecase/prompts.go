package usecase

import (
	"encoding/json"
	"fmt"
)

// Prompt templates for the two LLM calls. The extraction call turns raw job
// and resume text into the structured records; the explanation call turns
// records plus scores into a recruiter-facing rationale. Both request strict
// JSON output.

const extractionSystemPrompt = `You are an information extraction engine for recruitment screening.
Return ONLY valid JSON that conforms to the provided schema.
Do not add any commentary, markdown, or extra keys.

Rules:
- Never infer or guess. If not clearly stated, set value to null and add the item to unknowns.
- Extract evidence: provide a short quote (<= 20 words) from the input text that supports each extracted item.
- Do not use sensitive attributes (age, gender, nationality, race, religion). If present, ignore them.
- Normalize skill names to common industry terms where possible (e.g., "EKS" -> "Kubernetes", "S3" -> "AWS S3").
- Experience years must be numeric if explicitly supported; otherwise null.

Output JSON Schema:
{
  "job_requirements": {
    "must": [{"id": "m1", "text": "requirement text", "skill_tags": ["skill1"]}],
    "nice": [{"id": "n1", "text": "requirement text", "skill_tags": ["skill1"]}],
    "role_expectation": "IC|Lead|Manager|null",
    "year_requirements": {"skill_name": number_or_null}
  },
  "candidate_profile": {
    "skills": ["skill1", "skill2"],
    "roles": ["IC|Lead|Manager"],
    "experience_years": {"skill_name": number_or_null},
    "highlights": ["highlight1"],
    "concerns": ["concern1"],
    "unknowns": ["unknown1"]
  },
  "evidence": {
    "job": {"must:m1": "quote from job text"},
    "candidate": {"skill:Python": "quote from resume"}
  }
}`

const explanationSystemPrompt = `You are generating an explanation for a recruitment screening score.
Use only the provided inputs and evidence. Do not invent facts.
Keep it concise and actionable for a recruiter.

Output format must be JSON with keys:
- summary (string): A 1-2 sentence summary of the candidate's fit
- strengths (array of strings, up to 3): Key strengths matching job requirements
- concerns (array of strings, up to 3): Potential concerns or gaps
- unknowns (array of strings, up to 5): Information that couldn't be verified
- must_gaps (array of strings): Must requirements that are not satisfied`

// buildExtractionUserPrompt labels the two inputs so the model cannot confuse
// job text with resume text.
func buildExtractionUserPrompt(jobText, resumeText string) string {
	return fmt.Sprintf(`Extract job requirements and candidate profile from the following texts.

[JOB_TEXT]
%s

[RESUME_TEXT]
%s

Return JSON matching the schema. Use null when unknown.`, jobText, resumeText)
}

// buildExplanationUserPrompt embeds the four records as JSON blobs.
func buildExplanationUserPrompt(jobRequirements, candidateProfile, scores, evidence any) (string, error) {
	reqJSON, err := json.Marshal(jobRequirements)
	if err != nil {
		return "", fmt.Errorf("op=prompt.explanation: %w", err)
	}
	profJSON, err := json.Marshal(candidateProfile)
	if err != nil {
		return "", fmt.Errorf("op=prompt.explanation: %w", err)
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return "", fmt.Errorf("op=prompt.explanation: %w", err)
	}
	evJSON, err := json.Marshal(evidence)
	if err != nil {
		return "", fmt.Errorf("op=prompt.explanation: %w", err)
	}
	return fmt.Sprintf(`Given:
- job_requirements: %s
- candidate_profile: %s
- scores: %s
- evidence: %s

Generate the explanation JSON.`, reqJSON, profJSON, scoresJSON, evJSON), nil
}
