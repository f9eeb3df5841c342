// Package store 抽奖数据仓库（单一数据源）
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smysle/sakura-lottery-go/internal/lottery"
	"github.com/smysle/sakura-lottery-go/internal/metrics"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

// ErrStaleResponse 响应晚于更新的一次刷新完成，已丢弃
var ErrStaleResponse = errors.New("过期的刷新响应已丢弃")

// ErrDrawNotFound 抽奖不存在
var ErrDrawNotFound = errors.New("抽奖不存在")

// Fetcher 抽奖列表数据源
type Fetcher interface {
	ListDraws(ctx context.Context) ([]lottery.Draw, error)
}

// Source 当前数据来源
type Source string

const (
	SourceEmpty   Source = "empty"
	SourceBackend Source = "backend"
	SourceSeed    Source = "seed"
)

// Snapshot 某一时刻的只读视图，调用方不得修改其中的切片
type Snapshot struct {
	Draws     []lottery.Draw
	Groups    []lottery.GroupedLottery
	GroupErr  error // 分组时发现的数据不一致
	Err       error // 最近一次刷新失败的原因，成功后清空
	Source    Source
	Version   uint64
	UpdatedAt time.Time
}

// Options 仓库选项
type Options struct {
	Now          func() time.Time
	Seed         func(anchor time.Time) []lottery.Draw
	Metrics      *metrics.Metrics
	KeepLastGood bool // 刷新失败时保留上一次后端数据，而不是替换为兜底数据
}

// DrawStore 抽奖仓库
//
// 每次刷新在发起时分配递增序号，只有比已应用序号更新的响应才会生效。
// 服务端整体替换优先于本地补丁，Pin 过的补丁除外。
type DrawStore struct {
	fetcher Fetcher
	opts    Options
	log     zerolog.Logger

	mu        sync.RWMutex
	draws     []lottery.Draw
	pinned    map[int64]lottery.Draw
	snap      Snapshot
	initiated uint64
	applied   uint64
	listeners []func(Snapshot)
}

// New 创建仓库
func New(fetcher Fetcher, opts Options) *DrawStore {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Seed == nil {
		opts.Seed = lottery.SeedDraws
	}

	s := &DrawStore{
		fetcher: fetcher,
		opts:    opts,
		log:     logger.Component("store"),
		pinned:  make(map[int64]lottery.Draw),
	}
	s.snap = Snapshot{Source: SourceEmpty, UpdatedAt: opts.Now()}
	return s
}

// OnChange 注册变更监听，回调在锁外执行
func (s *DrawStore) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot 当前视图
func (s *DrawStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Draw 按 id 查找抽奖
func (s *DrawStore) Draw(id int64) (lottery.Draw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.draws {
		if d.ID == id {
			return d, nil
		}
	}
	return lottery.Draw{}, ErrDrawNotFound
}

// Refresh 从后端整体替换；失败时替换为兜底数据并返回错误
func (s *DrawStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.initiated++
	seq := s.initiated
	s.mu.Unlock()

	draws, fetchErr := s.fetcher.ListDraws(ctx)

	s.mu.Lock()
	if seq < s.applied {
		applied := s.applied
		s.mu.Unlock()
		s.opts.Metrics.ObserveRefresh(metrics.RefreshStale)
		s.log.Debug().Uint64("seq", seq).Uint64("applied", applied).Msg("丢弃过期的刷新响应")
		if fetchErr != nil {
			return fetchErr
		}
		return ErrStaleResponse
	}
	s.applied = seq

	if fetchErr != nil {
		if s.opts.KeepLastGood && s.snap.Source == SourceBackend {
			s.snap.Err = fetchErr
			s.mu.Unlock()
			s.opts.Metrics.ObserveRefresh(metrics.RefreshFallback)
			s.log.Warn().Err(fetchErr).Msg("刷新失败，保留上一次数据")
			return fetchErr
		}
		s.replace(s.opts.Seed(s.opts.Now()), SourceSeed, fetchErr)
		snap, listeners := s.snap, s.listeners
		s.mu.Unlock()

		s.opts.Metrics.ObserveRefresh(metrics.RefreshFallback)
		s.log.Warn().Err(fetchErr).Int("draws", len(snap.Draws)).Msg("刷新失败，使用兜底数据")
		notify(listeners, snap)
		return fetchErr
	}

	s.replace(draws, SourceBackend, nil)
	snap, listeners := s.snap, s.listeners
	s.mu.Unlock()

	s.opts.Metrics.ObserveRefresh(metrics.RefreshSuccess)
	s.log.Debug().Uint64("seq", seq).Int("draws", len(snap.Draws)).Msg("刷新完成")
	notify(listeners, snap)
	return nil
}

// Upsert 本地乐观更新，按 id 去重；下一次服务端替换会覆盖
func (s *DrawStore) Upsert(d lottery.Draw) {
	s.mutate(func() {
		s.draws = upsert(s.draws, d)
	})
}

// Patch 在写锁内修改当前记录，fn 返回 false 时放弃修改
//
// 记录不存在或被放弃时返回 false，且不产生新版本。
func (s *DrawStore) Patch(id int64, fn func(d *lottery.Draw) bool) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.draws {
		if s.draws[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	d := s.draws[idx]
	if !fn(&d) {
		s.mu.Unlock()
		return false
	}
	s.draws[idx] = d
	if _, ok := s.pinned[id]; ok {
		s.pinned[id] = d
	}
	s.recompute(s.snap.Source, s.snap.Err)
	snap, listeners := s.snap, s.listeners
	s.mu.Unlock()

	notify(listeners, snap)
	return true
}

// Pin 本地更新并在之后的服务端替换中保留，直到 Unpin
func (s *DrawStore) Pin(d lottery.Draw) {
	s.mutate(func() {
		s.pinned[d.ID] = d
		s.draws = upsert(s.draws, d)
	})
}

// Unpin 取消保留，当前数据不变，下一次服务端替换生效
func (s *DrawStore) Unpin(id int64) {
	s.mu.Lock()
	delete(s.pinned, id)
	s.mu.Unlock()
}

// Remove 本地删除
func (s *DrawStore) Remove(id int64) error {
	var err error
	s.mutate(func() {
		delete(s.pinned, id)
		for i := range s.draws {
			if s.draws[i].ID == id {
				s.draws = append(s.draws[:i:i], s.draws[i+1:]...)
				return
			}
		}
		err = ErrDrawNotFound
	})
	return err
}

func (s *DrawStore) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.recompute(s.snap.Source, s.snap.Err)
	snap, listeners := s.snap, s.listeners
	s.mu.Unlock()

	notify(listeners, snap)
}

// replace 整体替换并叠加 Pin 的补丁，调用方持有写锁
func (s *DrawStore) replace(draws []lottery.Draw, source Source, err error) {
	next := make([]lottery.Draw, 0, len(draws)+len(s.pinned))
	for _, d := range draws {
		next = upsert(next, d)
	}
	ids := make([]int64, 0, len(s.pinned))
	for id := range s.pinned {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		next = upsert(next, s.pinned[id])
	}
	s.draws = next
	s.recompute(source, err)
}

// recompute 重新计算分组，调用方持有写锁
func (s *DrawStore) recompute(source Source, err error) {
	draws := make([]lottery.Draw, len(s.draws))
	copy(draws, s.draws)

	groups, groupErr := lottery.GroupDraws(draws)
	if groupErr != nil {
		s.log.Warn().Err(groupErr).Msg("抽奖数据不一致")
	}

	s.snap = Snapshot{
		Draws:     draws,
		Groups:    groups,
		GroupErr:  groupErr,
		Err:       err,
		Source:    source,
		Version:   s.snap.Version + 1,
		UpdatedAt: s.opts.Now(),
	}
	s.opts.Metrics.SetSize(len(draws), len(groups))
}

func upsert(draws []lottery.Draw, d lottery.Draw) []lottery.Draw {
	for i := range draws {
		if draws[i].ID == d.ID {
			draws[i] = d
			return draws
		}
	}
	return append(draws, d)
}

func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}
