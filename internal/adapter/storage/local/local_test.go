package local_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/storage/local"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

func TestStore_RawRoundTrip(t *testing.T) {
	s, err := local.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	uri, err := s.WriteRaw(ctx, "resume.PDF", []byte("%PDF-1.4 content"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "raw/"))
	assert.True(t, strings.HasSuffix(uri, ".pdf"))

	b, err := s.ReadRaw(ctx, uri)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 content", string(b))
}

func TestStore_TextAndEvidenceURIs(t *testing.T) {
	s, err := local.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	textURI, err := s.WriteText(ctx, "cand-1", "extracted text")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(textURI, "text/cand-1_"))
	assert.True(t, strings.HasSuffix(textURI, ".txt"))

	got, err := s.ReadText(ctx, textURI)
	require.NoError(t, err)
	assert.Equal(t, "extracted text", got)

	evURI, err := s.WriteEvidence(ctx, "cand-1", `{"job":{}}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(evURI, "evidence/cand-1_"))
	assert.True(t, strings.HasSuffix(evURI, ".json"))
}

func TestStore_MissingAndTraversal(t *testing.T) {
	s, err := local.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.ReadRaw(ctx, "raw/nope.pdf")
	assert.ErrorIs(t, err, domain.ErrInputMissing)

	_, err = s.ReadRaw(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = s.ReadRaw(ctx, "/etc/passwd")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
