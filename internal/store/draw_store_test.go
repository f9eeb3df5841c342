package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smysle/sakura-lottery-go/internal/lottery"
	"github.com/smysle/sakura-lottery-go/internal/metrics"
)

var anchor = time.Date(2026, 1, 16, 12, 0, 0, 0, time.UTC)

type result struct {
	draws []lottery.Draw
	err   error
}

// gatedFetcher 每次调用阻塞直到测试放行对应序号
type gatedFetcher struct {
	mu    sync.Mutex
	calls int
	gates []chan result
	ready chan int
}

func newGatedFetcher(n int) *gatedFetcher {
	f := &gatedFetcher{ready: make(chan int, n)}
	for i := 0; i < n; i++ {
		f.gates = append(f.gates, make(chan result, 1))
	}
	return f
}

func (f *gatedFetcher) ListDraws(ctx context.Context) ([]lottery.Draw, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.mu.Unlock()

	f.ready <- i
	r := <-f.gates[i]
	return r.draws, r.err
}

type staticFetcher struct {
	draws []lottery.Draw
	err   error
}

func (f *staticFetcher) ListDraws(ctx context.Context) ([]lottery.Draw, error) {
	return f.draws, f.err
}

func mkDraw(id int64, name string) lottery.Draw {
	return lottery.Draw{
		ID:          id,
		Name:        name,
		LotteryType: lottery.LotteryTypeTraditional,
		EndDate:     anchor.Add(time.Duration(id) * time.Hour),
		IsActive:    true,
	}
}

func newStore(f Fetcher) *DrawStore {
	return New(f, Options{Now: func() time.Time { return anchor }, Metrics: metrics.New()})
}

func ids(draws []lottery.Draw) []int64 {
	out := make([]int64, 0, len(draws))
	for _, d := range draws {
		out = append(out, d.ID)
	}
	return out
}

func TestDrawStore_RefreshSuccess(t *testing.T) {
	s := newStore(&staticFetcher{draws: []lottery.Draw{mkDraw(1, "A"), mkDraw(2, "B"), mkDraw(3, "A")}})
	assert.Equal(t, SourceEmpty, s.Snapshot().Source)

	require.NoError(t, s.Refresh(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, SourceBackend, snap.Source)
	assert.NoError(t, snap.Err)
	assert.Len(t, snap.Draws, 3)
	require.Len(t, snap.Groups, 2)
	assert.Equal(t, 2, snap.Groups[0].TotalDraws)
	assert.Equal(t, uint64(1), snap.Version)
}

func TestDrawStore_RefreshFailureFallsBackToSeed(t *testing.T) {
	boom := errors.New("connection refused")
	s := newStore(&staticFetcher{err: boom})

	err := s.Refresh(context.Background())
	require.ErrorIs(t, err, boom)

	snap := s.Snapshot()
	assert.Equal(t, SourceSeed, snap.Source)
	assert.ErrorIs(t, snap.Err, boom)
	assert.Equal(t, lottery.SeedDraws(anchor), snap.Draws)
	assert.NotEmpty(t, snap.Groups)
}

func TestDrawStore_KeepLastGood(t *testing.T) {
	f := &staticFetcher{draws: []lottery.Draw{mkDraw(1, "A")}}
	s := New(f, Options{Now: func() time.Time { return anchor }, KeepLastGood: true})
	require.NoError(t, s.Refresh(context.Background()))

	f.draws, f.err = nil, errors.New("timeout")
	require.Error(t, s.Refresh(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, SourceBackend, snap.Source)
	assert.Equal(t, []int64{1}, ids(snap.Draws))
	assert.Error(t, snap.Err)
}

func TestDrawStore_StaleResponseDiscarded(t *testing.T) {
	f := newGatedFetcher(2)
	s := newStore(f)
	ctx := context.Background()

	errs := make(chan error, 2)
	go func() { errs <- s.Refresh(ctx) }()
	<-f.ready
	go func() { errs <- s.Refresh(ctx) }()
	<-f.ready

	// 后发起的先完成
	f.gates[1] <- result{draws: []lottery.Draw{mkDraw(2, "new")}}
	require.NoError(t, <-errs)

	f.gates[0] <- result{draws: []lottery.Draw{mkDraw(1, "old")}}
	assert.ErrorIs(t, <-errs, ErrStaleResponse)

	snap := s.Snapshot()
	assert.Equal(t, []int64{2}, ids(snap.Draws))
	assert.Equal(t, uint64(1), snap.Version)
}

func TestDrawStore_StaleFailureDoesNotSeed(t *testing.T) {
	f := newGatedFetcher(2)
	s := newStore(f)
	ctx := context.Background()

	errs := make(chan error, 2)
	go func() { errs <- s.Refresh(ctx) }()
	<-f.ready
	go func() { errs <- s.Refresh(ctx) }()
	<-f.ready

	f.gates[1] <- result{draws: []lottery.Draw{mkDraw(5, "fresh")}}
	require.NoError(t, <-errs)

	boom := errors.New("late failure")
	f.gates[0] <- result{err: boom}
	assert.ErrorIs(t, <-errs, boom)

	snap := s.Snapshot()
	assert.Equal(t, SourceBackend, snap.Source)
	assert.Equal(t, []int64{5}, ids(snap.Draws))
	assert.NoError(t, snap.Err)
}

func TestDrawStore_UpsertKeepsIDsUnique(t *testing.T) {
	s := newStore(&staticFetcher{draws: []lottery.Draw{mkDraw(1, "A"), mkDraw(2, "B")}})
	require.NoError(t, s.Refresh(context.Background()))

	updated := mkDraw(1, "A")
	updated.TicketAmount = 99
	s.Upsert(updated)
	s.Upsert(mkDraw(3, "C"))

	snap := s.Snapshot()
	assert.Equal(t, []int64{1, 2, 3}, ids(snap.Draws))
	assert.Equal(t, 99, snap.Draws[0].TicketAmount)
	assert.Len(t, snap.Groups, 3)

	d, err := s.Draw(1)
	require.NoError(t, err)
	assert.Equal(t, 99, d.TicketAmount)
}

func TestDrawStore_ServerReplaceWinsOverLocalPatch(t *testing.T) {
	s := newStore(&staticFetcher{draws: []lottery.Draw{mkDraw(1, "A")}})
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))

	patched := mkDraw(1, "A")
	patched.TicketAmount = 5
	s.Upsert(patched)
	require.NoError(t, s.Refresh(ctx))

	d, err := s.Draw(1)
	require.NoError(t, err)
	assert.Zero(t, d.TicketAmount)
}

func TestDrawStore_PinnedPatchSurvivesRefresh(t *testing.T) {
	s := newStore(&staticFetcher{draws: []lottery.Draw{mkDraw(1, "A"), mkDraw(2, "A")}})
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))

	pinned := mkDraw(2, "A")
	pinned.IsActive = false
	s.Pin(pinned)
	s.Pin(mkDraw(9, "Local"))
	require.NoError(t, s.Refresh(ctx))

	snap := s.Snapshot()
	assert.Equal(t, []int64{1, 2, 9}, ids(snap.Draws))
	assert.False(t, snap.Draws[1].IsActive)

	s.Unpin(2)
	s.Unpin(9)
	require.NoError(t, s.Refresh(ctx))
	snap = s.Snapshot()
	assert.Equal(t, []int64{1, 2}, ids(snap.Draws))
	assert.True(t, snap.Draws[1].IsActive)
}

func TestDrawStore_Remove(t *testing.T) {
	s := newStore(&staticFetcher{draws: []lottery.Draw{mkDraw(1, "A"), mkDraw(2, "B")}})
	require.NoError(t, s.Refresh(context.Background()))

	require.NoError(t, s.Remove(1))
	assert.ErrorIs(t, s.Remove(1), ErrDrawNotFound)

	snap := s.Snapshot()
	assert.Equal(t, []int64{2}, ids(snap.Draws))
	_, err := s.Draw(1)
	assert.ErrorIs(t, err, ErrDrawNotFound)
}

func TestDrawStore_OnChangeAndSnapshotIsolation(t *testing.T) {
	s := newStore(&staticFetcher{draws: []lottery.Draw{mkDraw(1, "A")}})

	var versions []uint64
	s.OnChange(func(snap Snapshot) { versions = append(versions, snap.Version) })

	require.NoError(t, s.Refresh(context.Background()))
	before := s.Snapshot()

	changed := mkDraw(1, "A")
	changed.TicketAmount = 7
	s.Upsert(changed)

	assert.Equal(t, []uint64{1, 2}, versions)
	assert.Zero(t, before.Draws[0].TicketAmount, "旧快照不应被修改")
	assert.Equal(t, 7, s.Snapshot().Draws[0].TicketAmount)
}

func TestDrawStore_InconsistentGroupReported(t *testing.T) {
	mixed := mkDraw(2, "A")
	mixed.LotteryType = lottery.LotteryTypeStrategic
	s := newStore(&staticFetcher{draws: []lottery.Draw{mkDraw(1, "A"), mixed}})
	require.NoError(t, s.Refresh(context.Background()))

	snap := s.Snapshot()
	assert.ErrorIs(t, snap.GroupErr, lottery.ErrInconsistentData)
	require.Len(t, snap.Groups, 1)
	assert.True(t, snap.Groups[0].Inconsistent)
}

func TestDrawStore_Patch(t *testing.T) {
	s := newStore(&staticFetcher{draws: []lottery.Draw{mkDraw(1, "A"), mkDraw(2, "B")}})
	require.NoError(t, s.Refresh(context.Background()))
	version := s.Snapshot().Version

	ok := s.Patch(1, func(d *lottery.Draw) bool {
		d.TicketAmount++
		return true
	})
	assert.True(t, ok)
	d, err := s.Draw(1)
	require.NoError(t, err)
	assert.Equal(t, 1, d.TicketAmount)
	assert.Equal(t, version+1, s.Snapshot().Version)

	ok = s.Patch(2, func(d *lottery.Draw) bool {
		d.TicketAmount = 99
		return false
	})
	assert.False(t, ok)
	d, err = s.Draw(2)
	require.NoError(t, err)
	assert.Zero(t, d.TicketAmount)
	assert.Equal(t, version+1, s.Snapshot().Version)

	assert.False(t, s.Patch(42, func(*lottery.Draw) bool { return true }))
}

func TestDrawStore_PatchUpdatesPinned(t *testing.T) {
	s := newStore(&staticFetcher{draws: []lottery.Draw{mkDraw(1, "A")}})
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))

	s.Pin(mkDraw(1, "A"))
	require.True(t, s.Patch(1, func(d *lottery.Draw) bool {
		d.TicketAmount = 3
		return true
	}))
	require.NoError(t, s.Refresh(ctx))

	d, err := s.Draw(1)
	require.NoError(t, err)
	assert.Equal(t, 3, d.TicketAmount)
}
