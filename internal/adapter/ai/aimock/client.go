// Package aimock implements the AI client port deterministically for offline
// development and tests. No network calls; same input, same output.
package aimock

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// Client implements domain.AIClient deterministically.
type Client struct {
	// Dims is the embedding dimensionality, 1536 when zero.
	Dims int
}

// New constructs a deterministic mock AI client.
func New(dims int) *Client { return &Client{Dims: dims} }

// Embed returns a deterministic unit-length vector for each input text.
func (c *Client) Embed(_ domain.Context, texts []string) ([][]float32, error) {
	dims := c.Dims
	if dims <= 0 {
		dims = 1536
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedDeterministic(t, dims)
	}
	return out, nil
}

// ExtractJSON returns canned JSON shaped after the prompt's expected output:
// an explanation object for explanation prompts, a structured extraction
// otherwise.
func (c *Client) ExtractJSON(_ domain.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.Contains(strings.ToLower(systemPrompt), "recruiter") {
		return explanationJSON(userPrompt)
	}
	return extractionJSON(userPrompt)
}

func extractionJSON(userPrompt string) (string, error) {
	skills := topWords(userPrompt, 3)
	payload := map[string]any{
		"job_requirements": map[string]any{
			"must": []map[string]any{
				{"id": "m1", "text": "Experience with " + pick(skills, 0, "go"), "skill_tags": []string{pick(skills, 0, "go")}},
			},
			"nice": []map[string]any{
				{"id": "n1", "text": "Familiarity with " + pick(skills, 1, "postgres"), "skill_tags": []string{pick(skills, 1, "postgres")}},
			},
			"role_expectation":  "IC",
			"year_requirements": map[string]float64{pick(skills, 0, "go"): 2},
		},
		"candidate_profile": map[string]any{
			"skills":           skills,
			"roles":            []string{"IC"},
			"experience_years": map[string]float64{pick(skills, 0, "go"): 3},
			"highlights":       []string{"Worked with " + strings.Join(skills, ", ")},
			"concerns":         []string{},
			"unknowns":         []string{},
		},
		"evidence": map[string]any{
			"job":       map[string]string{"m1": "experience required"},
			"candidate": map[string]string{pick(skills, 0, "go"): "hands-on experience"},
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("op=aimock.extract: %w", err)
	}
	return string(b), nil
}

func explanationJSON(userPrompt string) (string, error) {
	words := topWords(userPrompt, 3)
	payload := map[string]any{
		"summary":   "Solid fit with strengths in " + strings.Join(words, ", ") + ".",
		"strengths": []string{"Relevant experience with " + pick(words, 0, "the stack")},
		"concerns":  []string{},
		"unknowns":  []string{},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("op=aimock.explain: %w", err)
	}
	return string(b), nil
}

func pick(words []string, i int, fallback string) string {
	if i < len(words) {
		return words[i]
	}
	return fallback
}

// topWords returns the n most frequent words longer than three characters,
// ties broken alphabetically so output is stable.
func topWords(s string, n int) []string {
	counts := map[string]int{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,:;!?()[]{}\"'")
		if len(w) > 3 {
			counts[w]++
		}
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

// embedDeterministic seeds a simple LCG with sha1(s) and normalizes the
// resulting vector to unit length.
func embedDeterministic(s string, dims int) []float32 {
	h := sha1.Sum([]byte(s))
	x := binary.BigEndian.Uint32(h[:4])
	const a, c = 1664525, 1013904223
	v := make([]float32, dims)
	var norm float64
	for i := range v {
		x = a*x + c
		// Map to [-1, 1).
		f := float64(x)/float64(math.MaxUint32)*2 - 1
		v[i] = float32(f)
		norm += f * f
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range v {
			v[i] = float32(float64(v[i]) / norm)
		}
	}
	return v
}
