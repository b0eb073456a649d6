package core_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/core/kinds"
	"github.com/JonMunkholm/roster/internal/store/memory"
)

func memberRecords(n int) []core.Record {
	out := make([]core.Record, n)
	for i := range out {
		out[i] = core.Record{
			"first_name":      fmt.Sprintf("Member%d", i),
			"last_name":       "Test",
			"email":           fmt.Sprintf("m%d@example.com", i),
			"membership_type": core.KnownMembership(core.PlanMonthly),
		}
	}
	return out
}

func TestCommitter_BatchesAndProgress(t *testing.T) {
	store := &faultyStore{Store: memory.New()}
	c := core.Committer{Store: store, BatchSize: 2, Logger: quietLogger()}

	var progress []float64
	out := c.Commit(context.Background(), kinds.Members(), memberRecords(5), core.ModeMerge, func(p float64) {
		progress = append(progress, p)
	})

	assert.Equal(t, 5, out.Committed)
	assert.Equal(t, 3, out.Batches)
	assert.Empty(t, out.Errors)
	assert.False(t, out.Cancelled)
	assert.Equal(t, []string{"upsert", "upsert", "upsert"}, store.Calls())

	require.Len(t, progress, 4)
	assert.InDelta(t, 100.0/3, progress[0], 0.001)
	assert.InDelta(t, 200.0/3, progress[1], 0.001)
	assert.Equal(t, 100.0, progress[2])
	assert.Equal(t, 100.0, progress[3], "final 100 is always reported")
}

func TestCommitter_FailedBatchDoesNotStopLaterBatches(t *testing.T) {
	store := &faultyStore{
		Store: memory.New(),
		writeFn: func(call int) error {
			if call == 2 {
				return errStoreDown
			}
			return nil
		},
	}
	c := core.Committer{Store: store, BatchSize: 2, Logger: quietLogger()}

	var last float64
	out := c.Commit(context.Background(), kinds.Members(), memberRecords(5), core.ModeMerge, func(p float64) { last = p })

	assert.Equal(t, 3, out.Committed)
	assert.Equal(t, 3, out.Batches)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 2, out.Errors[0].Batch)
	assert.Equal(t, "Batch 2 failed: connection refused", out.Errors[0].Message)
	assert.Equal(t, 100.0, last)
}

func TestCommitter_ReplaceWipeFailureAborts(t *testing.T) {
	store := &faultyStore{
		Store:    memory.New(),
		deleteFn: func() error { return errStoreDown },
	}
	c := core.Committer{Store: store, Logger: quietLogger()}

	called := false
	out := c.Commit(context.Background(), kinds.Members(), memberRecords(3), core.ModeReplace, func(float64) { called = true })

	assert.Equal(t, 0, out.Committed)
	assert.Equal(t, 0, out.Batches)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 0, out.Errors[0].Batch)
	assert.Equal(t, "Failed to clear existing data: connection refused", out.Errors[0].Message)
	assert.Equal(t, []string{"delete"}, store.Calls(), "no batch is attempted")
	assert.False(t, called)
}

func TestCommitter_ReplaceInserts(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.Insert(ctx, core.KindMembers, []core.Record{{"id": "old", "email": "old@example.com"}}))

	store := &faultyStore{Store: mem}
	c := core.Committer{Store: store, BatchSize: 10, Logger: quietLogger()}
	out := c.Commit(ctx, kinds.Members(), memberRecords(3), core.ModeReplace, nil)

	assert.Equal(t, 3, out.Committed)
	assert.Equal(t, []string{"delete", "insert"}, store.Calls())

	recs := selectAll(t, mem, core.KindMembers)
	require.Len(t, recs, 3)
	for _, r := range recs {
		assert.NotEmpty(t, r["id"], "ids are generated for records without one")
		assert.NotEqual(t, "old@example.com", r["email"])
	}
}

func TestCommitter_CancelledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &faultyStore{
		Store: memory.New(),
		writeFn: func(call int) error {
			if call == 1 {
				cancel()
			}
			return nil
		},
	}
	c := core.Committer{Store: store, BatchSize: 2, Logger: quietLogger()}

	out := c.Commit(ctx, kinds.Members(), memberRecords(6), core.ModeMerge, nil)

	assert.True(t, out.Cancelled)
	assert.Equal(t, 1, out.Batches)
	assert.Equal(t, 0, out.Committed, "the store refused the cancelled call")
	assert.Len(t, store.Calls(), 1)
}

func TestCommitter_DoesNotMutateInput(t *testing.T) {
	recs := memberRecords(2)
	c := core.Committer{Store: memory.New(), Logger: quietLogger()}

	c.Commit(context.Background(), kinds.Members(), recs, core.ModeMerge, nil)

	for _, r := range recs {
		assert.NotContains(t, r, "id")
	}
}
