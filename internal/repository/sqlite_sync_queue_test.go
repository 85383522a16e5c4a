package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/arbor/internal/db"
	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(table domain.Table, id string, action domain.SyncAction, payload string) *domain.SyncEntry {
	return &domain.SyncEntry{
		ProjectID: "p1",
		Table:     table,
		EntityID:  id,
		Action:    action,
		Payload:   []byte(payload),
	}
}

func TestSyncQueue_EnqueueKeepsFIFO(t *testing.T) {
	repo := NewSQLiteSyncQueueRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		e := entry(domain.TableBranches, id, domain.ActionUpsert, `{"id":"`+id+`"}`)
		require.NoError(t, repo.Enqueue(ctx, e))
		assert.NotZero(t, e.ID)
		assert.Equal(t, 1, e.Revision)
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].EntityID)
	assert.Equal(t, "c", list[2].EntityID)
	assert.Less(t, list[0].ID, list[1].ID)
	assert.Equal(t, `{"id":"b"}`, string(list[1].Payload))
}

func TestSyncQueue_EnqueueCoalescesAtTail(t *testing.T) {
	repo := NewSQLiteSyncQueueRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Enqueue(ctx, entry(domain.TableTasks, "t2", domain.ActionUpsert, `{}`)))
	first := entry(domain.TableTasks, "t1", domain.ActionUpsert, `{"v":1}`)
	require.NoError(t, repo.Enqueue(ctx, first))

	second := entry(domain.TableTasks, "t1", domain.ActionDelete, `{"v":2}`)
	require.NoError(t, repo.Enqueue(ctx, second))
	assert.Equal(t, first.ID, second.ID, "coalesced into the pending entry")
	assert.Equal(t, 2, second.Revision)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t1", list[1].EntityID)
	assert.Equal(t, domain.ActionDelete, list[1].Action)
	assert.Equal(t, `{"v":2}`, string(list[1].Payload))
}

func TestSyncQueue_EnqueueBehindLaterEntryAppends(t *testing.T) {
	repo := NewSQLiteSyncQueueRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	first := entry(domain.TableTasks, "t1", domain.ActionUpsert, `{"branch":"root"}`)
	require.NoError(t, repo.Enqueue(ctx, first))
	// Same id in another table is a different entity.
	require.NoError(t, repo.Enqueue(ctx, entry(domain.TableBranches, "t1", domain.ActionUpsert, `{}`)))

	moved := entry(domain.TableTasks, "t1", domain.ActionUpsert, `{"branch":"t1"}`)
	require.NoError(t, repo.Enqueue(ctx, moved))
	assert.Greater(t, moved.ID, first.ID, "a rewrite never jumps ahead of later entries")
	assert.Equal(t, 1, moved.Revision)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []domain.Table{domain.TableTasks, domain.TableBranches, domain.TableTasks},
		[]domain.Table{list[0].Table, list[1].Table, list[2].Table})
	assert.Equal(t, `{"branch":"root"}`, string(list[0].Payload))
	assert.Equal(t, `{"branch":"t1"}`, string(list[2].Payload))
}

func TestSyncQueue_RemoveIsRevisionGuarded(t *testing.T) {
	repo := NewSQLiteSyncQueueRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	e := entry(domain.TableBranches, "b1", domain.ActionUpsert, `{"v":1}`)
	require.NoError(t, repo.Enqueue(ctx, e))
	pushed := *e

	// A mutation lands while pushed is in flight.
	require.NoError(t, repo.Enqueue(ctx, entry(domain.TableBranches, "b1", domain.ActionUpsert, `{"v":2}`)))

	removed, err := repo.Remove(ctx, pushed.ID, pushed.Revision)
	require.NoError(t, err)
	assert.False(t, removed)

	got, err := repo.Get(ctx, pushed.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got.Payload))

	removed, err = repo.Remove(ctx, got.ID, got.Revision)
	require.NoError(t, err)
	assert.True(t, removed)
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSyncQueue_FailureParkAndRetry(t *testing.T) {
	repo := NewSQLiteSyncQueueRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	e := entry(domain.TablePeople, "ada", domain.ActionUpsert, `{}`)
	require.NoError(t, repo.Enqueue(ctx, e))

	next := time.Date(2026, 3, 1, 9, 0, 30, 0, time.UTC)
	require.NoError(t, repo.MarkFailed(ctx, e.ID, Failure{Attempts: 1, NextAttemptAt: &next, LastError: "timeout"}))
	got, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.NextAttemptAt)
	assert.True(t, next.Equal(*got.NextAttemptAt))
	assert.False(t, got.Due(next.Add(-time.Second)))
	assert.True(t, got.Due(next))

	require.NoError(t, repo.MarkFailed(ctx, e.ID, Failure{Attempts: 5, LastError: "gone", Parked: true}))
	parked, err := repo.CountParked(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, parked)

	// New writes for a parked entity get their own entry.
	fresh := entry(domain.TablePeople, "ada", domain.ActionUpsert, `{"v":2}`)
	require.NoError(t, repo.Enqueue(ctx, fresh))
	assert.NotEqual(t, e.ID, fresh.ID)

	require.NoError(t, repo.Retry(ctx, e.ID))
	got, err = repo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, got.Parked)
	assert.Zero(t, got.Attempts)
	assert.Nil(t, got.NextAttemptAt)
	assert.Empty(t, got.LastError)

	assert.ErrorIs(t, repo.Retry(ctx, 9999), ErrNotFound)
}

func TestSyncQueue_RemoveSuperseded(t *testing.T) {
	repo := NewSQLiteSyncQueueRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	old := entry(domain.TableTasks, "t1", domain.ActionUpsert, `{"v":1}`)
	require.NoError(t, repo.Enqueue(ctx, old))
	require.NoError(t, repo.MarkFailed(ctx, old.ID, Failure{Attempts: 5, Parked: true}))
	newer := entry(domain.TableTasks, "t1", domain.ActionUpsert, `{"v":2}`)
	require.NoError(t, repo.Enqueue(ctx, newer))

	n, err := repo.RemoveSuperseded(ctx, domain.TableTasks, "t1", newer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer.ID, list[0].ID)
}

func TestSyncQueue_ListByProject(t *testing.T) {
	repo := NewSQLiteSyncQueueRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	a := entry(domain.TableBranches, "b1", domain.ActionUpsert, `{}`)
	b := entry(domain.TableBranches, "b2", domain.ActionUpsert, `{}`)
	b.ProjectID = "p2"
	require.NoError(t, repo.Enqueue(ctx, a))
	require.NoError(t, repo.Enqueue(ctx, b))

	list, err := repo.ListByProject(ctx, "p2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b2", list[0].EntityID)
}

func TestSyncQueue_SurvivesRestart(t *testing.T) {
	path := testutil.TestDBPath(t)
	ctx := context.Background()

	first, err := db.OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteSyncQueueRepo(first).Enqueue(ctx, entry(domain.TableProjects, "p1", domain.ActionUpsert, `{"name":"x"}`)))
	require.NoError(t, first.Close())

	second, err := db.OpenDB(path)
	require.NoError(t, err)
	defer second.Close()

	list, err := NewSQLiteSyncQueueRepo(second).List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.TableProjects, list[0].Table)
	assert.Equal(t, `{"name":"x"}`, string(list[0].Payload))
}
