// Package middleware Bot 中间件
package middleware

import (
	"runtime/debug"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

// Logger 日志中间件，记录命令与回调
func Logger() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}

			ev := logger.Debug().
				Int64("user_id", user.ID).
				Str("username", user.Username)
			if cb := c.Callback(); cb != nil {
				ev.Str("callback", cb.Data).Msg("收到回调")
			} else {
				ev.Str("text", c.Text()).Msg("收到消息")
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				logger.Warn().Err(err).Int64("user_id", user.ID).Dur("took", time.Since(start)).Msg("处理失败")
			}
			return err
		}
	}
}

// Recover 恢复中间件
func Recover() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error().
						Interface("panic", r).
						Str("stack", string(debug.Stack())).
						Msg("处理器 panic")

					err = c.Send("❌ 处理请求时发生错误，请稍后重试")
				}
			}()
			return next(c)
		}
	}
}

// Require 权限检查，不满足时回复 deny
func Require(allowed func(userID int64) bool, deny string) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return c.Send("❌ 无法获取用户信息")
			}
			if !allowed(user.ID) {
				if c.Callback() != nil {
					return c.Respond(&tele.CallbackResponse{Text: deny, ShowAlert: true})
				}
				return c.Send(deny)
			}
			return next(c)
		}
	}
}

// AdminOnly 管理员权限中间件
func AdminOnly(cfg *config.Config) tele.MiddlewareFunc {
	return Require(cfg.IsAdmin, "❌ 您没有权限执行此操作")
}

// OwnerOnly Owner 权限中间件
func OwnerOnly(cfg *config.Config) tele.MiddlewareFunc {
	return Require(cfg.IsOwner, "❌ 此命令仅限 Owner 使用")
}

// PrivateOnly 私聊中间件
func PrivateOnly() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil || chat.Type != tele.ChatPrivate {
				return c.Send("❌ 此命令仅可在私聊中使用")
			}
			return next(c)
		}
	}
}

// rateLimitEntry 速率限制条目
type rateLimitEntry struct {
	count     int
	resetTime time.Time
}

// rateLimiter 固定窗口限流
type rateLimiter struct {
	mu        sync.Mutex
	entries   map[int64]*rateLimitEntry
	limit     int
	window    time.Duration
	lastClean time.Time
	now       func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		entries:   make(map[int64]*rateLimitEntry),
		limit:     limit,
		window:    window,
		lastClean: time.Now(),
		now:       time.Now,
	}
}

// allow 检查是否允许请求
func (rl *rateLimiter) allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	// 定期清理过期条目
	if now.Sub(rl.lastClean) > 5*rl.window {
		for id, entry := range rl.entries {
			if now.After(entry.resetTime) {
				delete(rl.entries, id)
			}
		}
		rl.lastClean = now
	}

	entry, exists := rl.entries[userID]
	if !exists || now.After(entry.resetTime) {
		rl.entries[userID] = &rateLimitEntry{count: 1, resetTime: now.Add(rl.window)}
		return true
	}
	if entry.count >= rl.limit {
		return false
	}
	entry.count++
	return true
}

// RateLimit 每分钟请求数限制，exempt 返回 true 的用户不受限
func RateLimit(requestsPerMinute int, exempt func(userID int64) bool) tele.MiddlewareFunc {
	limiter := newRateLimiter(requestsPerMinute, time.Minute)

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || (exempt != nil && exempt(user.ID)) {
				return next(c)
			}

			if !limiter.allow(user.ID) {
				logger.Warn().
					Int64("user_id", user.ID).
					Int("limit", requestsPerMinute).
					Msg("用户触发速率限制")
				if c.Callback() != nil {
					return c.Respond(&tele.CallbackResponse{Text: "⏳ 操作太频繁"})
				}
				return c.Send("⏳ 操作太频繁，请稍后再试")
			}
			return next(c)
		}
	}
}
