// Sakura Lottery - Go Version
// 抽奖聚合服务：HTTP API + Telegram Bot
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smysle/sakura-lottery-go/internal/backend"
	"github.com/smysle/sakura-lottery-go/internal/bot"
	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/internal/database"
	"github.com/smysle/sakura-lottery-go/internal/database/repository"
	"github.com/smysle/sakura-lottery-go/internal/metrics"
	"github.com/smysle/sakura-lottery-go/internal/scheduler"
	"github.com/smysle/sakura-lottery-go/internal/service"
	"github.com/smysle/sakura-lottery-go/internal/store"
	"github.com/smysle/sakura-lottery-go/internal/web"
	"github.com/smysle/sakura-lottery-go/pkg/imggen"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

var (
	configPath = flag.String("config", "config.json", "配置文件路径")
	debug      = flag.Bool("debug", false, "调试模式")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	config.SetConfigPath(*configPath)

	// 初始化日志
	logger.Init(logger.Options{Debug: *debug || cfg.Debug, Dir: cfg.LogDir})
	logger.Info().Msg("🌸 Sakura Lottery Go 启动中...")

	if cfg.Lottery.FontPath != "" {
		if err := imggen.LoadFont(cfg.Lottery.FontPath); err != nil {
			logger.Warn().Err(err).Str("path", cfg.Lottery.FontPath).Msg("加载字体失败，使用内置字体")
		}
	}

	m := metrics.New()

	// 抽奖数据
	client := backend.NewClient(backend.Options{
		BaseURL:    cfg.Backend.URL,
		Token:      cfg.Backend.Token,
		Timeout:    cfg.Backend.Timeout(),
		RetryCount: cfg.Backend.RetryCount,
		CacheTTL:   cfg.Backend.CacheTTL(),
	})
	draws := store.New(client, store.Options{Metrics: m, KeepLastGood: cfg.Backend.KeepLastGood})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout()+5*time.Second)
	if err := draws.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("首次刷新失败，使用兜底数据")
	}
	cancel()
	logger.Info().Int("draws", len(draws.Snapshot().Draws)).Msg("✅ 抽奖数据加载完成")

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化数据库失败")
	}
	defer database.Close(db)

	ticketRepo := repository.NewTicketRepository(db)
	bindingRepo := repository.NewBindingRepository(db)
	tickets := service.NewTicketService(draws, ticketRepo, bindingRepo, m)
	profiles := service.NewProfileService(client)
	backups, err := service.NewBackupService(db, cfg.Database.BackupDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化备份服务失败")
	}

	// 初始化 Web API 服务
	var webServer *web.Server
	if cfg.API.Enabled {
		webServer = web.New(&cfg.API, web.Deps{
			Store:    draws,
			Tickets:  tickets,
			Profiles: profiles,
			Metrics:  m,
			Cache:    client,
			Lottery:  cfg.Lottery,
		})
		go func() {
			if err := webServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Web API 服务启动失败")
			}
		}()
	}

	// 初始化 Telegram Bot
	var tgBot *bot.Bot
	if cfg.BotToken != "" {
		tgBot, err = bot.New(cfg, bot.Deps{
			Store:    draws,
			Tickets:  tickets,
			Profiles: profiles,
			Bindings: bindingRepo,
			Backups:  backups,
			Cache:    client,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("初始化 Telegram Bot 失败")
		}
		go tgBot.Run()
		logger.Info().Str("bot", cfg.BotName).Msg("✅ Telegram Bot 初始化完成")
	} else {
		logger.Info().Msg("未配置 bot_token，跳过 Telegram Bot")
	}

	// 定时任务
	sched := scheduler.New(cfg.Scheduler, draws, tickets)
	if tgBot != nil && cfg.Scheduler.NotifyWinners {
		sched.SetNotifier(tgBot)
	}
	sched.SetBackuper(backups)
	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("定时任务启动失败")
	}
	logger.Info().Msg("✅ 定时任务调度器启动")

	logger.Info().Msg("🚀 Sakura Lottery Go 启动成功!")

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务...")
	sched.Stop()
	if tgBot != nil {
		tgBot.Stop()
	}
	if webServer != nil {
		if err := webServer.Stop(); err != nil {
			logger.Warn().Err(err).Msg("关闭 Web 服务失败")
		}
	}
	logger.Info().Msg("👋 再见!")
}
