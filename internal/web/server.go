// Package web Web API 服务
package web

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smysle/sakura-lottery-go/internal/backend"
	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/internal/lottery"
	"github.com/smysle/sakura-lottery-go/internal/metrics"
	"github.com/smysle/sakura-lottery-go/internal/service"
	"github.com/smysle/sakura-lottery-go/internal/store"
	pkglogger "github.com/smysle/sakura-lottery-go/pkg/logger"
)

// DrawStore 抽奖仓库
type DrawStore interface {
	Snapshot() store.Snapshot
	Draw(id int64) (lottery.Draw, error)
	Refresh(ctx context.Context) error
}

// Purger 可清空的接口缓存
type Purger interface {
	Purge()
}

// Deps 服务依赖
type Deps struct {
	Store    DrawStore
	Tickets  *service.TicketService
	Profiles *service.ProfileService
	Metrics  *metrics.Metrics
	Cache    Purger // 可选，手动刷新前清空
	Lottery  config.LotteryConfig
	Now      func() time.Time
}

// Server Web 服务器
type Server struct {
	app       *fiber.App
	cfg       *config.APIConfig
	deps      Deps
	startTime time.Time
}

// New 创建 Web 服务器
func New(cfg *config.APIConfig, deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// 中间件
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	server := &Server{
		app:       app,
		cfg:       cfg,
		deps:      deps,
		startTime: time.Now(),
	}

	server.registerRoutes()
	return server
}

// registerRoutes 注册路由
func (s *Server) registerRoutes() {
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/", s.healthCheck)
	s.app.Get("/status", s.detailedStatus)

	if s.deps.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	v1 := s.app.Group("/api/v1")

	// 抽奖
	v1.Get("/lotteries", s.listLotteries)
	v1.Get("/lotteries/:name", s.getLottery)
	v1.Get("/draws", s.listDraws)
	v1.Post("/draws/refresh", s.refreshDraws)
	v1.Get("/draws/:id", s.getDraw)
	v1.Get("/draws/:id/countdown", s.drawCountdown)
	v1.Get("/draws/:id/countdown/stream", s.drawCountdownStream)
	v1.Get("/draws/:id/card.png", s.drawCard)

	// 用户
	v1.Get("/profiles/:id", s.getProfile)
	v1.Post("/profiles/topup", s.topUp)
	v1.Get("/profiles/:id/tickets", s.listTickets)
	v1.Post("/tickets", s.purchase)
	v1.Get("/tickets/:uuid", s.getTicket)
	v1.Get("/tickets/:uuid/qr.png", s.ticketQR)
	v1.Get("/battlepass", s.battlePass)
}

// App 底层 fiber 实例
func (s *Server) App() *fiber.App {
	return s.app
}

// Start 启动服务器
func (s *Server) Start() error {
	if !s.cfg.Enabled {
		pkglogger.Info().Msg("【API服务】未启用，跳过...")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	pkglogger.Info().Str("addr", addr).Msg("【API服务】启动中...")

	return s.app.Listen(addr)
}

// Stop 停止服务器
func (s *Server) Stop() error {
	return s.app.Shutdown()
}

// errorHandler 统一错误响应 {"error": "..."}
func errorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		pkglogger.Error().Err(err).Str("path", c.Path()).Msg("请求处理失败")
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func statusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	var te *backend.TransportError
	switch {
	case errors.Is(err, service.ErrDrawNotFound),
		errors.Is(err, service.ErrTicketNotFound),
		errors.Is(err, store.ErrDrawNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrDrawClosed):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrInvalidCombination),
		errors.Is(err, service.ErrInvalidProfile),
		errors.Is(err, service.ErrInvalidAmount):
		return fiber.StatusBadRequest
	case errors.As(err, &te):
		if te.Status == fiber.StatusNotFound {
			return fiber.StatusNotFound
		}
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// healthCheck 健康检查
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "ok",
		Timestamp: s.deps.Now().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

// StatusResponse 详细状态响应
type StatusResponse struct {
	Status string      `json:"status"`
	Uptime string      `json:"uptime"`
	System SystemInfo  `json:"system"`
	Store  StoreStatus `json:"store"`
}

// SystemInfo 系统信息
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     string `json:"mem_alloc"`
}

// StoreStatus 抽奖仓库状态
type StoreStatus struct {
	Source       store.Source `json:"source"`
	Version      uint64       `json:"version"`
	UpdatedAt    string       `json:"updated_at"`
	Draws        int          `json:"draws"`
	Groups       int          `json:"groups"`
	Error        string       `json:"error,omitempty"`
	Inconsistent string       `json:"inconsistent,omitempty"`
}

func storeStatus(snap store.Snapshot) StoreStatus {
	st := StoreStatus{
		Source:    snap.Source,
		Version:   snap.Version,
		UpdatedAt: snap.UpdatedAt.Format(time.RFC3339),
		Draws:     len(snap.Draws),
		Groups:    len(snap.Groups),
	}
	if snap.Err != nil {
		st.Error = snap.Err.Error()
	}
	if snap.GroupErr != nil {
		st.Inconsistent = snap.GroupErr.Error()
	}
	return st
}

// detailedStatus 详细状态
func (s *Server) detailedStatus(c *fiber.Ctx) error {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := "ok"
	snap := s.deps.Store.Snapshot()
	if snap.Source != store.SourceBackend {
		status = "degraded"
	}

	return c.JSON(StatusResponse{
		Status: status,
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
		System: SystemInfo{
			GoVersion:    runtime.Version(),
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     fmt.Sprintf("%.2f MB", float64(memStats.Alloc)/1024/1024),
		},
		Store: storeStatus(snap),
	})
}
