package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// TestQueueRepo_Lease_Integration verifies the SKIP LOCKED lease against a
// real PostgreSQL: concurrent workers never claim the same item, and items
// come out oldest first.
func TestQueueRepo_Lease_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pc, err := pgcontainer.Run(ctx,
		"postgres:17-alpine",
		pgcontainer.WithDatabase("screening"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = pc.Terminate(context.Background()) })

	dsn, err := pc.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(dsn))

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	jobs := postgres.NewJobRepo(pool)
	cands := postgres.NewCandidateRepo(pool)
	queue := postgres.NewQueueRepo(pool)

	jobID, err := jobs.Create(ctx, domain.JobPosting{Title: "Backend Engineer", JobTextRaw: "Go, PostgreSQL"})
	require.NoError(t, err)
	candID, err := cands.Create(ctx, domain.Candidate{JobID: jobID, DisplayName: "Jane Doe"})
	require.NoError(t, err)

	const items = 20
	for i := 0; i < items; i++ {
		_, err := queue.Enqueue(ctx, candID, domain.StageTextExtract)
		require.NoError(t, err)
	}

	var mu sync.Mutex
	seen := map[string]int{}
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				it, ok, err := queue.LeaseNext(ctx)
				if err != nil {
					t.Error(err)
					return
				}
				if !ok {
					return
				}
				mu.Lock()
				seen[it.QueueID]++
				mu.Unlock()
				require.NoError(t, queue.Complete(ctx, it.QueueID))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, items)
	for id, n := range seen {
		assert.Equal(t, 1, n, "item %s leased more than once", id)
	}

	// Failure path: attempts and last_error survive a retry.
	qid, err := queue.Enqueue(ctx, candID, domain.StageLLMExtract)
	require.NoError(t, err)
	it, ok, err := queue.LeaseNext(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, qid, it.QueueID)
	require.NoError(t, queue.Fail(ctx, qid, "upstream timeout"))
	require.NoError(t, queue.Retry(ctx, qid))

	got, err := queue.Get(ctx, qid)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueReady, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "upstream timeout", got.LastError)
}
