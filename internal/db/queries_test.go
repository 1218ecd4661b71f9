package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"brandpulse/internal/engine"
	"brandpulse/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startTestStore brings up a throwaway Postgres, applies the goose
// migrations, and returns a Queries over it.
func startTestStore(t *testing.T) *Queries {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("brandpulse-test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	migrator, err := sql.Open("pgx", connStr)
	if err != nil {
		t.Fatal(err)
	}
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(migrator, "../../migrations"))
	require.NoError(t, migrator.Close())

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	return NewQueries(pool)
}

func createUserWorkflow(t *testing.T, q *Queries, id, name string) *model.Workflow {
	t.Helper()
	w, err := q.CreateWorkflow(context.Background(), CreateWorkflowParams{
		ID:           id,
		Name:         name,
		Status:       "active",
		Conditions:   []byte(`[]`),
		ActionType:   "flag_for_review",
		ActionConfig: []byte(`{}`),
	})
	require.NoError(t, err)
	return w
}

func seedInteraction(t *testing.T, q *Queries, id string) *model.Interaction {
	t.Helper()
	in, err := q.CreateInteraction(context.Background(), CreateInteractionParams{
		ID:           id,
		Platform:     "instagram",
		Kind:         "comment",
		AuthorHandle: "@fan",
		Content:      "love this product",
	})
	require.NoError(t, err)
	return in
}

func TestStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed store tests in short mode")
	}
	ctx := context.Background()
	q := startTestStore(t)

	t.Run("clear pending response reverts to pre-approval status", func(t *testing.T) {
		seedInteraction(t, q, "int-revert")
		require.NoError(t, q.UpdateInteractionStatus(ctx, "int-revert", model.StatusRead, model.StatusUnread))

		wfID := "wf-gen"
		require.NoError(t, q.SetPendingResponse(ctx, "int-revert", "drafted reply", &wfID))

		parked, err := q.GetInteraction(ctx, "int-revert")
		require.NoError(t, err)
		assert.Equal(t, model.StatusAwaitingApproval, parked.Status)
		require.NotNil(t, parked.PendingResponse)
		assert.Equal(t, "drafted reply", parked.PendingResponse.Text)
		require.NotNil(t, parked.PendingResponse.WorkflowID)
		assert.Equal(t, "wf-gen", *parked.PendingResponse.WorkflowID)

		require.NoError(t, q.ClearPendingResponse(ctx, "int-revert"))

		reverted, err := q.GetInteraction(ctx, "int-revert")
		require.NoError(t, err)
		assert.Equal(t, model.StatusRead, reverted.Status)
		assert.Nil(t, reverted.PendingResponse)

		// nothing left to reject
		assert.ErrorIs(t, q.ClearPendingResponse(ctx, "int-revert"), pgx.ErrNoRows)
	})

	t.Run("clear pending response only applies while awaiting approval", func(t *testing.T) {
		seedInteraction(t, q, "int-unread")

		assert.ErrorIs(t, q.ClearPendingResponse(ctx, "int-unread"), pgx.ErrNoRows)

		in, err := q.GetInteraction(ctx, "int-unread")
		require.NoError(t, err)
		assert.Equal(t, model.StatusUnread, in.Status)
	})

	t.Run("mark replied settles the approval flow", func(t *testing.T) {
		seedInteraction(t, q, "int-approve")
		wfID := "wf-gen"
		require.NoError(t, q.SetPendingResponse(ctx, "int-approve", "drafted reply", &wfID))

		require.NoError(t, q.MarkReplied(ctx, "int-approve"))

		in, err := q.GetInteraction(ctx, "int-approve")
		require.NoError(t, err)
		assert.Equal(t, model.StatusReplied, in.Status)
		assert.Nil(t, in.PendingResponse)
	})

	t.Run("reorder rejects stale version and keeps order", func(t *testing.T) {
		a := createUserWorkflow(t, q, "wf-a", "First")
		b := createUserWorkflow(t, q, "wf-b", "Second")
		assert.Less(t, a.Priority, b.Priority)

		version, err := q.OrderingVersion(ctx)
		require.NoError(t, err)

		require.NoError(t, q.ReorderWorkflows(ctx, []string{"wf-b", "wf-a"}, version))

		bumped, err := q.OrderingVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, version+1, bumped)

		// replay with the old version
		err = q.ReorderWorkflows(ctx, []string{"wf-a", "wf-b"}, version)
		assert.ErrorIs(t, err, engine.ErrStaleOrdering)

		ws, err := q.ListWorkflows(ctx)
		require.NoError(t, err)
		var userIDs []string
		for _, w := range ws {
			if !w.IsSystem() {
				userIDs = append(userIDs, w.ID)
			}
		}
		assert.Equal(t, []string{"wf-b", "wf-a"}, userIDs)
	})

	t.Run("concurrent creates assign unique priorities", func(t *testing.T) {
		const n = 8
		results := make([]*model.Workflow, n)
		errs := make([]error, n)

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = q.CreateWorkflow(ctx, CreateWorkflowParams{
					ID:           fmt.Sprintf("wf-race-%d", i),
					Name:         fmt.Sprintf("Race %d", i),
					Status:       "active",
					Conditions:   []byte(`[]`),
					ActionType:   "flag_for_review",
					ActionConfig: []byte(`{}`),
				})
			}(i)
		}
		wg.Wait()

		seen := make(map[int]string, n)
		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			prev, dup := seen[results[i].Priority]
			assert.Falsef(t, dup, "priority %d assigned to both %s and %s",
				results[i].Priority, prev, results[i].ID)
			seen[results[i].Priority] = results[i].ID
		}
	})
}
