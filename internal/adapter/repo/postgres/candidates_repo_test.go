package postgres_test

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

func TestCandidateRepo_Get(t *testing.T) {
	now := time.Now().UTC()
	pool := &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[0].(*string)) = "cand-1"
		*(dest[1].(*string)) = "job-1"
		*(dest[2].(*string)) = "Jane Doe"
		*(dest[3].(*domain.CandidateStatus)) = domain.CandidateProcessing
		*(dest[4].(*string)) = ""
		*(dest[5].(*time.Time)) = now
		return nil
	}}}
	repo := postgres.NewCandidateRepo(pool)

	c, err := repo.Get(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", c.JobID)
	assert.Equal(t, domain.CandidateProcessing, c.Status)
}

func TestCandidateRepo_Get_NotFound(t *testing.T) {
	pool := &poolStub{row: rowStub{scan: func(_ ...any) error { return pgx.ErrNoRows }}}
	repo := postgres.NewCandidateRepo(pool)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCandidateRepo_UpdateStatus(t *testing.T) {
	pool := &poolStub{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := postgres.NewCandidateRepo(pool)

	long := strings.Repeat("e", 4000)
	require.NoError(t, repo.UpdateStatus(context.Background(), "cand-1", domain.CandidateError, long))
	require.Len(t, pool.execs, 1)
	stored, ok := pool.execs[0].args[2].(string)
	require.True(t, ok)
	assert.Len(t, stored, 1000)

	pool.execTag = pgconn.NewCommandTag("UPDATE 0")
	err := repo.UpdateStatus(context.Background(), "missing", domain.CandidateDone, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCandidateRepo_UpdateStatus_TruncationKeepsValidUTF8(t *testing.T) {
	pool := &poolStub{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := postgres.NewCandidateRepo(pool)

	// Same rune-boundary hazard as the queue's last_error column.
	msg := strings.Repeat("a", 999) + "日本語"
	require.NoError(t, repo.UpdateStatus(context.Background(), "cand-1", domain.CandidateError, msg))
	require.Len(t, pool.execs, 1)
	stored, ok := pool.execs[0].args[2].(string)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(stored))
	assert.Equal(t, strings.Repeat("a", 999), stored)
}

func TestScoreConfigRepo_Latest_Missing(t *testing.T) {
	pool := &poolStub{row: rowStub{scan: func(_ ...any) error { return pgx.ErrNoRows }}}
	repo := postgres.NewScoreConfigRepo(pool)

	_, err := repo.Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrConfigMissing)
}

func TestScoreConfigRepo_Latest(t *testing.T) {
	now := time.Now().UTC()
	pool := &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[0].(*int)) = 2
		*(dest[1].(*[]byte)) = []byte(`{"must":0.45,"nice":0.2,"year":0.2,"role":0.15}`)
		*(dest[2].(*bool)) = true
		*(dest[3].(*int)) = 20
		*(dest[4].(*int)) = 3
		*(dest[5].(*[]byte)) = []byte(`{"IC":{"Lead":0.7}}`)
		*(dest[6].(*time.Time)) = now
		return nil
	}}}
	repo := postgres.NewScoreConfigRepo(pool)

	c, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, c.Version)
	assert.InDelta(t, 0.45, c.Weights.Must, 1e-9)
	assert.Equal(t, 0.7, c.RoleDistance["IC"]["Lead"])
}
