package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/store/memory"
)

func waitResult(t *testing.T, svc *core.Service, runID string) *core.ImportResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := svc.GetImportResult(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestStartImport_ReportsProgressAndResult(t *testing.T) {
	svc, store := newMemoryService()

	runID, err := svc.StartImport(context.Background(), core.KindMembers, core.ModeMerge, "members.csv",
		[]byte(memberHeader+"Jean,Dupont,jean@example.com,monthly\n"))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	res := waitResult(t, svc, runID)
	assert.True(t, res.Success)
	assert.Equal(t, runID, res.RunID)
	assert.Equal(t, 1, store.Len(core.KindMembers))

	p, err := svc.GetImportProgress(runID)
	require.NoError(t, err)
	assert.Equal(t, core.PhaseComplete, p.Phase)
	assert.Equal(t, 100.0, p.Percent)
	assert.True(t, p.Done())

	// A late subscriber gets the final snapshot and a closed channel.
	ch, err := svc.SubscribeProgress(runID)
	require.NoError(t, err)
	last, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, core.PhaseComplete, last.Phase)
	_, ok = <-ch
	assert.False(t, ok)
}

// blockingStore holds every write until released.
type blockingStore struct {
	core.Store
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Upsert(ctx context.Context, kind core.Kind, recs []core.Record, key string) error {
	b.entered <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.Store.Upsert(ctx, kind, recs, key)
}

func TestStartImport_SubscribeThenCancel(t *testing.T) {
	store := &blockingStore{
		Store:   memory.New(),
		entered: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
	svc := newService(store, 1)

	runID, err := svc.StartImport(context.Background(), core.KindMembers, core.ModeMerge, "members.csv",
		[]byte(memberHeader+
			"A,A,a@example.com,monthly\n"+
			"B,B,b@example.com,monthly\n"+
			"C,C,c@example.com,monthly\n"))
	require.NoError(t, err)

	ch, err := svc.SubscribeProgress(runID)
	require.NoError(t, err)

	<-store.entered
	require.NoError(t, svc.CancelImport(runID))

	var phases []core.ImportPhase
	for p := range ch {
		phases = append(phases, p.Phase)
	}
	require.NotEmpty(t, phases)
	assert.Equal(t, core.PhaseCancelled, phases[len(phases)-1])

	res := waitResult(t, svc, runID)
	assert.Equal(t, core.StatusCancelled, res.Status)
	assert.Equal(t, 0, res.ImportedRecords)
}

func TestStartImport_FailedRun(t *testing.T) {
	svc, _ := newMemoryService()

	runID, err := svc.StartImport(context.Background(), core.KindMembers, core.ModeMerge, "members.pdf", []byte("x"))
	require.NoError(t, err)

	res := waitResult(t, svc, runID)
	assert.False(t, res.Success)

	p, err := svc.GetImportProgress(runID)
	require.NoError(t, err)
	assert.Equal(t, core.PhaseFailed, p.Phase)
	assert.NotEmpty(t, p.Error)
}

func TestStartImport_UnknownRun(t *testing.T) {
	svc, _ := newMemoryService()

	_, err := svc.SubscribeProgress("nope")
	assert.True(t, errors.Is(err, core.ErrRunNotFound))
	assert.ErrorIs(t, svc.CancelImport("nope"), core.ErrRunNotFound)
	_, err = svc.GetImportResult(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	_, err = svc.GetImportProgress("nope")
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}

func TestStartImport_LimiterFull(t *testing.T) {
	store := &blockingStore{
		Store:   memory.New(),
		entered: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
	svc := core.NewService(core.ServiceConfig{
		Store:   store,
		Catalog: newCatalog(t),
		Limiter: core.NewImportLimiter(1, 20*time.Millisecond),
		Logger:  quietLogger(),
	})

	runID, err := svc.StartImport(context.Background(), core.KindMembers, core.ModeMerge, "m.csv",
		[]byte(memberHeader+"A,A,a@example.com,monthly\n"))
	require.NoError(t, err)
	<-store.entered

	_, err = svc.StartImport(context.Background(), core.KindClasses, core.ModeMerge, "c.csv", []byte("x"))
	assert.ErrorIs(t, err, core.ErrTooManyImports)
	assert.Equal(t, 1, svc.LimiterStatus().Active)

	close(store.release)
	waitResult(t, svc, runID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.WaitForImports(ctx))
}
