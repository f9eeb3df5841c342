package lottery

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CountdownValue 剩余时间
type CountdownValue struct {
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
	Expired bool  `json:"expired"`
}

// String 格式化为 HH:MM:SS，已结束返回 "00:00:00"
func (v CountdownValue) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", v.Hours, v.Minutes, v.Seconds)
}

// Remaining 计算 now 到 target 的剩余时间，按毫秒差向下取整分解
//
// 仅当 target <= now 时为已结束；不足 1 秒返回全零但未结束。
func Remaining(now, target time.Time) CountdownValue {
	left := target.Sub(now)
	if left <= 0 {
		return CountdownValue{Expired: true}
	}
	total := left.Milliseconds() / 1000
	return CountdownValue{
		Hours:   total / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
	}
}

// TickInterval 倒计时刷新间隔
const TickInterval = time.Second

// Countdown 按固定间隔推送剩余时间，结束后自动停止
type Countdown struct {
	target time.Time
	now    func() time.Time
	every  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewCountdown 创建倒计时，now 为 nil 时使用 time.Now
func NewCountdown(target time.Time, now func() time.Time) *Countdown {
	if now == nil {
		now = time.Now
	}
	return &Countdown{target: target, now: now, every: TickInterval}
}

// Start 启动倒计时；立即推送一次，之后每个间隔推送一次，推送过已结束的值后停止
//
// fn 在后台协程中执行，不得调用 Stop；需要提前结束时取消 ctx。
func (c *Countdown) Start(ctx context.Context, fn func(CountdownValue)) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	done := c.done
	c.mu.Unlock()

	go c.loop(ctx, cancel, done, fn)
}

func (c *Countdown) loop(ctx context.Context, cancel context.CancelFunc, done chan struct{}, fn func(CountdownValue)) {
	ticker := time.NewTicker(c.every)
	defer func() {
		ticker.Stop()
		cancel()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(done)
	}()

	if v := Remaining(c.now(), c.target); c.emit(ctx, fn, v) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.emit(ctx, fn, Remaining(c.now(), c.target)) {
				return
			}
		}
	}
}

// emit 推送一次，返回是否应当停止
func (c *Countdown) emit(ctx context.Context, fn func(CountdownValue), v CountdownValue) bool {
	if ctx.Err() != nil {
		return true
	}
	fn(v)
	return v.Expired
}

// Stop 停止倒计时并等待后台协程退出
func (c *Countdown) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done 倒计时结束或被停止后关闭；未启动时返回 nil
func (c *Countdown) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}
