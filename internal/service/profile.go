package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smysle/sakura-lottery-go/internal/backend"
	"github.com/smysle/sakura-lottery-go/internal/lottery"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

// ErrInvalidAmount 充值金额无效
var ErrInvalidAmount = errors.New("充值金额必须大于 0")

// ProfileBackend 资料相关后端接口
type ProfileBackend interface {
	GetProfile(ctx context.Context, id int64) (*backend.Profile, error)
	TopUp(ctx context.Context, req backend.TopUpRequest) (*backend.Profile, error)
	BattlePassView(ctx context.Context) (*backend.BattlePass, error)
}

// BattlePassProgress 战令赛季与用户进度
type BattlePassProgress struct {
	SeasonStart time.Time                  `json:"season_start"`
	SeasonEnd   time.Time                  `json:"season_end"`
	Remaining   lottery.CountdownValue     `json:"remaining"`
	Level       int                        `json:"level"`
	VIP         bool                       `json:"vip"`
	Unlocked    []backend.BattlePassReward `json:"unlocked"`
	Locked      []backend.BattlePassReward `json:"locked"`
}

// ProfileService 用户资料服务
type ProfileService struct {
	backend ProfileBackend
	now     func() time.Time
}

// NewProfileService 创建资料服务
func NewProfileService(b ProfileBackend) *ProfileService {
	return &ProfileService{backend: b, now: time.Now}
}

// Get 获取资料
func (s *ProfileService) Get(ctx context.Context, id int64) (*backend.Profile, error) {
	if id <= 0 {
		return nil, ErrInvalidProfile
	}
	return s.backend.GetProfile(ctx, id)
}

// TopUp 充值，至少指定一种货币，金额必须为正；返回充值后的资料
func (s *ProfileService) TopUp(ctx context.Context, req backend.TopUpRequest) (*backend.Profile, error) {
	if req.ProfileID <= 0 {
		return nil, ErrInvalidProfile
	}
	if req.Currency == nil && req.Credits == nil {
		return nil, ErrInvalidAmount
	}
	for _, amount := range []*float64{req.Currency, req.Credits} {
		if amount != nil && *amount <= 0 {
			return nil, ErrInvalidAmount
		}
	}

	p, err := s.backend.TopUp(ctx, req)
	if err != nil {
		logger.Error().Err(err).Int64("profile", req.ProfileID).Msg("充值失败")
		return nil, fmt.Errorf("充值失败: %w", err)
	}
	if p == nil {
		// 后端未返回资料时重新拉取
		p, err = s.backend.GetProfile(ctx, req.ProfileID)
		if err != nil {
			return nil, err
		}
	}

	logger.Info().Int64("profile", req.ProfileID).Msg("充值成功")
	return p, nil
}

// BattlePass 战令奖励；profileID 为 0 时只返回赛季信息
func (s *ProfileService) BattlePass(ctx context.Context, profileID int64) (*BattlePassProgress, error) {
	var (
		bp      *backend.BattlePass
		profile *backend.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bp, err = s.backend.BattlePassView(gctx)
		return err
	})
	if profileID > 0 {
		g.Go(func() error {
			var err error
			profile, err = s.backend.GetProfile(gctx, profileID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	progress := &BattlePassProgress{
		SeasonStart: bp.SeasonStart,
		SeasonEnd:   bp.SeasonEnd,
		Remaining:   lottery.Remaining(s.now(), bp.SeasonEnd),
	}
	if profile != nil {
		progress.Level = profile.BattlepassLvl
		progress.VIP = profile.IsVIP
	}

	for _, r := range bp.Rewards {
		if r.Level <= progress.Level && (!r.Premium || progress.VIP) {
			progress.Unlocked = append(progress.Unlocked, r)
		} else {
			progress.Locked = append(progress.Locked, r)
		}
	}
	return progress, nil
}
