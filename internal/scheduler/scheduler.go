// Package scheduler 定时任务调度
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/robfig/cron/v3"

	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/internal/service"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

const (
	TagRefresh = "refresh"
	TagSettle  = "settle"
	TagBackup  = "backup"
)

// Refresher 抽奖列表刷新
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Settler 彩票结算
type Settler interface {
	Settle(ctx context.Context) ([]service.Winner, error)
}

// Notifier 中奖通知
type Notifier interface {
	NotifyWinners(winners []service.Winner) int
}

// Backuper 数据备份
type Backuper interface {
	Run(keepDays int) error
}

// Scheduler 定时任务调度器
type Scheduler struct {
	cron     *gocron.Scheduler
	cfg      config.SchedulerConfig
	store    Refresher
	tickets  Settler
	notifier Notifier
	backuper Backuper
	timeout  time.Duration
}

// New 创建调度器
func New(cfg config.SchedulerConfig, store Refresher, tickets Settler) *Scheduler {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	s := gocron.NewScheduler(loc)
	s.SetMaxConcurrentJobs(2, gocron.RescheduleMode)

	return &Scheduler{
		cron:    s,
		cfg:     cfg,
		store:   store,
		tickets: tickets,
		timeout: 30 * time.Second,
	}
}

// SetNotifier 设置中奖通知（一般为 Bot）
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetBackuper 设置备份任务
func (s *Scheduler) SetBackuper(b Backuper) {
	s.backuper = b
}

// Start 注册任务并异步启动
func (s *Scheduler) Start() error {
	logger.Info().Msg("启动定时任务调度器")

	if err := s.registerJobs(); err != nil {
		return err
	}
	s.cron.StartAsync()
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	logger.Info().Msg("停止定时任务调度器")
	s.cron.Stop()
}

// registerJobs 注册所有定时任务
func (s *Scheduler) registerJobs() error {
	if s.cfg.RefreshSeconds > 0 {
		if _, err := s.cron.Every(s.cfg.RefreshSeconds).Seconds().Tag(TagRefresh).Do(s.refresh); err != nil {
			return err
		}
		logger.Info().Int("seconds", s.cfg.RefreshSeconds).Msg("已注册: 抽奖刷新任务")
	}

	if s.cfg.SettleSeconds > 0 && s.tickets != nil {
		// 首次结算等刷新先跑一轮
		_, err := s.cron.Every(s.cfg.SettleSeconds).Seconds().
			StartAt(time.Now().Add(time.Duration(s.cfg.SettleSeconds) * time.Second)).
			Tag(TagSettle).
			Do(s.settle)
		if err != nil {
			return err
		}
		logger.Info().Int("seconds", s.cfg.SettleSeconds).Msg("已注册: 彩票结算任务")
	}

	if s.cfg.BackupCron != "" && s.backuper != nil {
		spec, err := cron.ParseStandard(s.cfg.BackupCron)
		if err != nil {
			return fmt.Errorf("备份 cron 表达式无效: %w", err)
		}
		if _, err := s.cron.Cron(s.cfg.BackupCron).Tag(TagBackup).Do(s.backup); err != nil {
			return err
		}
		logger.Info().
			Str("cron", s.cfg.BackupCron).
			Time("next", spec.Next(time.Now())).
			Msg("已注册: 数据备份任务")
	}
	return nil
}

// RemoveJob 移除任务
func (s *Scheduler) RemoveJob(tag string) error {
	return s.cron.RemoveByTag(tag)
}

// refresh 刷新抽奖列表
func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.store.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("定时刷新抽奖失败")
	}
}

// settle 结算并通知中奖用户
func (s *Scheduler) settle() {
	logger.Debug().Msg("执行定时任务: 彩票结算")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	winners, err := s.tickets.Settle(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("彩票结算失败")
		return
	}
	if len(winners) == 0 {
		return
	}

	if !s.cfg.NotifyWinners || s.notifier == nil {
		logger.Info().Int("winners", len(winners)).Msg("中奖通知未开启")
		return
	}
	sent := s.notifier.NotifyWinners(winners)
	logger.Info().Int("winners", len(winners)).Int("sent", sent).Msg("中奖通知已发送")
}

// backup 定时备份
func (s *Scheduler) backup() {
	logger.Info().Msg("执行定时任务: 数据备份")
	if err := s.backuper.Run(s.cfg.BackupKeepDays); err != nil {
		logger.Error().Err(err).Msg("数据备份失败")
	}
}
