// Package service 购票与对账服务
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/database/repository"
	"github.com/smysle/sakura-lottery-go/internal/lottery"
	"github.com/smysle/sakura-lottery-go/internal/metrics"
	"github.com/smysle/sakura-lottery-go/internal/store"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

var (
	ErrDrawNotFound       = errors.New("抽奖不存在")
	ErrDrawClosed         = errors.New("该期抽奖已截止")
	ErrInvalidCombination = errors.New("号码格式不正确")
	ErrInvalidProfile     = errors.New("无效的资料 ID")
	ErrTicketNotFound     = errors.New("彩票不存在")
)

const (
	traditionalMin   = 1
	traditionalMax   = 99
	strategicMaxLen  = 64
	traditionalSplit = ","
)

// DrawSource 抽奖数据来源
type DrawSource interface {
	Snapshot() store.Snapshot
	Draw(id int64) (lottery.Draw, error)
	Patch(id int64, fn func(d *lottery.Draw) bool) bool
}

// PurchaseRequest 购票请求
type PurchaseRequest struct {
	ProfileID int64  `json:"profile_id"`
	DrawID    int64  `json:"draw_id"`
	ValueStr  string `json:"value_str"`
}

// Winner 新中奖的彩票
type Winner struct {
	ProfileID int64
	Ticket    lottery.EnrichedTicket
}

// TicketService 彩票服务
type TicketService struct {
	draws    DrawSource
	tickets  *repository.TicketRepository
	bindings *repository.BindingRepository
	metrics  *metrics.Metrics
	scorer   lottery.Scorer
	now      func() time.Time
}

// NewTicketService 创建彩票服务
func NewTicketService(draws DrawSource, tickets *repository.TicketRepository, bindings *repository.BindingRepository, m *metrics.Metrics) *TicketService {
	return &TicketService{
		draws:    draws,
		tickets:  tickets,
		bindings: bindings,
		metrics:  m,
		scorer:   lottery.ExactMatchScorer{},
		now:      time.Now,
	}
}

// Purchase 购票
func (s *TicketService) Purchase(ctx context.Context, req PurchaseRequest) (*models.Ticket, error) {
	if req.ProfileID <= 0 {
		return nil, ErrInvalidProfile
	}

	draw, err := s.draws.Draw(req.DrawID)
	if err != nil {
		if errors.Is(err, store.ErrDrawNotFound) {
			return nil, ErrDrawNotFound
		}
		return nil, err
	}

	now := s.now()
	if !draw.IsActive || draw.IsResolved() || draw.IsExpired(now) {
		return nil, ErrDrawClosed
	}

	value, err := NormalizeCombination(draw.LotteryType, req.ValueStr)
	if err != nil {
		return nil, err
	}

	rail, price := draw.PaymentRail()
	ticket := &models.Ticket{
		ProfileID:    req.ProfileID,
		DrawID:       draw.ID,
		ValueStr:     value,
		PurchaseDate: now,
		Status:       lottery.TicketActive,
		Rail:         rail,
		Price:        price,
	}
	if err := s.tickets.Create(ticket); err != nil {
		logger.Error().Err(err).Int64("profile", req.ProfileID).Int64("draw", draw.ID).Msg("保存彩票失败")
		return nil, fmt.Errorf("购票失败: %w", err)
	}

	// 在当前记录上累加售票数；期间刷新已关闭或开奖的抽奖保持服务端数据
	s.draws.Patch(draw.ID, func(d *lottery.Draw) bool {
		if !d.IsActive || d.IsResolved() {
			return false
		}
		d.TicketAmount++
		return true
	})

	if s.metrics != nil {
		s.metrics.TicketsPurchased.Inc()
	}
	logger.Info().
		Int64("profile", req.ProfileID).
		Int64("draw", draw.ID).
		Str("uuid", ticket.UUID).
		Str("rail", string(rail)).
		Float64("price", price).
		Msg("购票成功")

	return ticket, nil
}

// Get 按凭证查询彩票，附带所属抽奖与当前状态
func (s *TicketService) Get(ctx context.Context, uuid string) (*lottery.EnrichedTicket, error) {
	row, err := s.tickets.GetByUUID(uuid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}

	draw, err := s.draws.Draw(row.DrawID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDrawNotFound, &lottery.MissingDrawError{TicketID: row.ID, DrawID: row.DrawID})
	}
	vip, err := s.vipProfiles([]models.Ticket{*row})
	if err != nil {
		return nil, err
	}
	et := lottery.ReconcileTicket(s.now(), row.ToUserTicket(), draw, s.scorer, vip[row.ProfileID])
	s.persist(row, et)
	return &et, nil
}

// List 用户彩票对账结果，VIP 以绑定记录为准
func (s *TicketService) List(ctx context.Context, profileID int64) (*lottery.ReconcileResult, error) {
	if profileID <= 0 {
		return nil, ErrInvalidProfile
	}

	rows, err := s.tickets.ListByProfile(profileID)
	if err != nil {
		return nil, fmt.Errorf("查询彩票失败: %w", err)
	}

	vip, err := s.vipProfiles(rows)
	if err != nil {
		return nil, err
	}

	snap := s.draws.Snapshot()
	result := s.reconcile(snap.Draws, rows, vip[profileID])
	if err := result.Err(); err != nil {
		logger.Warn().Err(err).Int64("profile", profileID).Msg("彩票引用了不存在的抽奖")
	}
	return &result, nil
}

// Settle 对所有未结算彩票重新判定，返回尚未通知过的中奖彩票并标记为已通知
func (s *TicketService) Settle(ctx context.Context) ([]Winner, error) {
	rows, err := s.tickets.ListUnsettled()
	if err != nil {
		return nil, fmt.Errorf("查询未结算彩票失败: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	vip, err := s.vipProfiles(rows)
	if err != nil {
		return nil, err
	}

	snap := s.draws.Snapshot()
	byID := make(map[int64]lottery.Draw, len(snap.Draws))
	for _, d := range snap.Draws {
		byID[d.ID] = d
	}

	var (
		winners  []Winner
		notified []int64
		missing  int
	)
	now := s.now()
	for i := range rows {
		row := &rows[i]
		d, ok := byID[row.DrawID]
		if !ok {
			missing++
			continue
		}

		et := lottery.ReconcileTicket(now, row.ToUserTicket(), d, s.scorer, vip[row.ProfileID])
		s.persist(row, et)

		if et.Status == lottery.TicketWon && !row.Notified {
			winners = append(winners, Winner{ProfileID: row.ProfileID, Ticket: et})
			notified = append(notified, row.ID)
		}
		if et.Status != lottery.TicketActive && s.metrics != nil && changed(row, et) {
			s.metrics.TicketsSettled.WithLabelValues(string(et.Status)).Inc()
		}
	}

	if err := s.tickets.MarkNotified(notified); err != nil {
		return nil, fmt.Errorf("标记通知状态失败: %w", err)
	}
	if missing > 0 {
		logger.Warn().Int("count", missing).Msg("部分彩票引用的抽奖不存在，跳过结算")
	}
	logger.Info().Int("checked", len(rows)).Int("winners", len(winners)).Msg("彩票结算完成")
	return winners, nil
}

func (s *TicketService) reconcile(draws []lottery.Draw, rows []models.Ticket, vip bool) lottery.ReconcileResult {
	tickets := make([]lottery.UserTicket, 0, len(rows))
	byID := make(map[int64]*models.Ticket, len(rows))
	for i := range rows {
		tickets = append(tickets, rows[i].ToUserTicket())
		byID[rows[i].ID] = &rows[i]
	}

	result := lottery.Reconcile(s.now(), draws, tickets, s.scorer, vip)
	for _, et := range result.Tickets {
		s.persist(byID[et.ID], et)
	}
	return result
}

// persist 派生状态有变化时回写
func (s *TicketService) persist(row *models.Ticket, et lottery.EnrichedTicket) {
	if row == nil || !changed(row, et) {
		return
	}
	if err := s.tickets.UpdateOutcome(row.ID, et.Status, et.WinAmount); err != nil {
		logger.Warn().Err(err).Int64("ticket", row.ID).Msg("回写彩票状态失败")
	}
}

func (s *TicketService) vipProfiles(rows []models.Ticket) (map[int64]bool, error) {
	vip := make(map[int64]bool)
	if s.bindings == nil {
		return vip, nil
	}

	ids := make([]int64, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.ProfileID]; ok {
			continue
		}
		seen[r.ProfileID] = struct{}{}
		ids = append(ids, r.ProfileID)
	}

	bindings, err := s.bindings.ListByProfiles(ids)
	if err != nil {
		return nil, fmt.Errorf("查询绑定失败: %w", err)
	}
	for _, b := range bindings {
		if b.VIP {
			vip[b.ProfileID] = true
		}
	}
	return vip, nil
}

func changed(row *models.Ticket, et lottery.EnrichedTicket) bool {
	if row.Status != et.Status {
		return true
	}
	switch {
	case row.WinAmount == nil && et.WinAmount == nil:
		return false
	case row.WinAmount == nil || et.WinAmount == nil:
		return true
	default:
		return *row.WinAmount != *et.WinAmount
	}
}

// NormalizeCombination 按彩票类型校验并规范化号码
//
// 传统型为 1-99 之间互不重复的整数，逗号分隔；策略型为 1-64 个可打印字符。
func NormalizeCombination(t lottery.LotteryType, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrInvalidCombination
	}

	switch t {
	case lottery.LotteryTypeTraditional:
		parts := strings.Split(value, traditionalSplit)
		seen := make(map[int]struct{}, len(parts))
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || n < traditionalMin || n > traditionalMax {
				return "", fmt.Errorf("%w: %q", ErrInvalidCombination, p)
			}
			if _, dup := seen[n]; dup {
				return "", fmt.Errorf("%w: 重复的号码 %d", ErrInvalidCombination, n)
			}
			seen[n] = struct{}{}
			out = append(out, strconv.Itoa(n))
		}
		return strings.Join(out, traditionalSplit), nil

	case lottery.LotteryTypeStrategic:
		if utf8.RuneCountInString(value) > strategicMaxLen {
			return "", fmt.Errorf("%w: 超过 %d 个字符", ErrInvalidCombination, strategicMaxLen)
		}
		for _, r := range value {
			if !unicode.IsPrint(r) {
				return "", fmt.Errorf("%w: 包含不可打印字符", ErrInvalidCombination)
			}
		}
		return value, nil

	default:
		return "", fmt.Errorf("%w: 未知彩票类型 %s", ErrInvalidCombination, t)
	}
}
