package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/usecase"
)

func embedFixture() *fakeExtractions {
	exts := newFakeExtractions()
	exts.byCandidate["cand-1"] = domain.Extraction{
		CandidateID: "cand-1",
		JobRequirements: domain.JobRequirements{
			Nice: []domain.NiceRequirement{
				{ID: "n1", Text: "Kubernetes experience"},
				{ID: "n2", Text: "AWS familiarity"},
			},
		},
		Profile: domain.CandidateProfile{
			Skills:     []string{"Go", "PostgreSQL"},
			Roles:      []string{"IC"},
			Highlights: []string{"Built pipelines", "Led migration"},
		},
	}
	return exts
}

func TestEmbed_GeneratesSummaryAndNiceVectors(t *testing.T) {
	exts := embedFixture()
	embs := newFakeEmbeddings()
	ai := &fakeAI{}
	svc := usecase.NewEmbedService(exts, embs, ai)

	require.NoError(t, svc.Execute(context.Background(), "cand-1"))

	// One batch call: summary first, then the nice requirements in order.
	require.Len(t, ai.embedInputs, 1)
	require.Len(t, ai.embedInputs[0], 3)
	assert.Equal(t, "Skills: Go, PostgreSQL | Highlights: Built pipelines. Led migration | Roles: IC", ai.embedInputs[0][0])
	assert.Equal(t, "Kubernetes experience", ai.embedInputs[0][1])
	assert.Equal(t, "AWS familiarity", ai.embedInputs[0][2])

	stored := embs.byCandidate["cand-1"]
	require.Len(t, stored, 3)
	assert.Equal(t, domain.EmbeddingCandidateSummary, stored[0].Kind)
	assert.Empty(t, stored[0].RefID)
	assert.Equal(t, domain.EmbeddingNiceReq, stored[1].Kind)
	assert.Equal(t, "n1", stored[1].RefID)
	assert.Equal(t, "n2", stored[2].RefID)
}

func TestEmbed_SummarySkipsEmptySections(t *testing.T) {
	exts := newFakeExtractions()
	exts.byCandidate["cand-1"] = domain.Extraction{
		CandidateID: "cand-1",
		Profile:     domain.CandidateProfile{Skills: []string{"Go"}},
	}
	embs := newFakeEmbeddings()
	ai := &fakeAI{}
	svc := usecase.NewEmbedService(exts, embs, ai)

	require.NoError(t, svc.Execute(context.Background(), "cand-1"))
	require.Len(t, ai.embedInputs, 1)
	assert.Equal(t, "Skills: Go", ai.embedInputs[0][0])
}

func TestEmbed_NothingToEmbed(t *testing.T) {
	exts := newFakeExtractions()
	exts.byCandidate["cand-1"] = domain.Extraction{CandidateID: "cand-1"}
	embs := newFakeEmbeddings()
	ai := &fakeAI{}
	svc := usecase.NewEmbedService(exts, embs, ai)

	require.NoError(t, svc.Execute(context.Background(), "cand-1"))
	// Replace still runs so stale vectors from a prior run are cleared.
	assert.Equal(t, 1, embs.replaces)
	assert.Empty(t, embs.byCandidate["cand-1"])
	assert.Empty(t, ai.embedInputs)
}

func TestEmbed_ReplaceIsIdempotent(t *testing.T) {
	exts := embedFixture()
	embs := newFakeEmbeddings()
	svc := usecase.NewEmbedService(exts, embs, &fakeAI{})

	require.NoError(t, svc.Execute(context.Background(), "cand-1"))
	first := embs.byCandidate["cand-1"]
	require.NoError(t, svc.Execute(context.Background(), "cand-1"))
	assert.Equal(t, first, embs.byCandidate["cand-1"])
	assert.Equal(t, 2, embs.replaces)
}

func TestEmbed_MissingExtraction(t *testing.T) {
	svc := usecase.NewEmbedService(newFakeExtractions(), newFakeEmbeddings(), &fakeAI{})
	err := svc.Execute(context.Background(), "cand-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmbed_VectorCountMismatch(t *testing.T) {
	exts := embedFixture()
	ai := &fakeAI{embedVectors: [][]float32{{1, 0}}}
	svc := usecase.NewEmbedService(exts, newFakeEmbeddings(), ai)

	err := svc.Execute(context.Background(), "cand-1")
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}
