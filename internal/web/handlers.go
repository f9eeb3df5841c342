package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/smysle/sakura-lottery-go/internal/backend"
	"github.com/smysle/sakura-lottery-go/internal/lottery"
	"github.com/smysle/sakura-lottery-go/internal/service"
	"github.com/smysle/sakura-lottery-go/internal/store"
	"github.com/smysle/sakura-lottery-go/pkg/imggen"
	pkglogger "github.com/smysle/sakura-lottery-go/pkg/logger"
	"github.com/smysle/sakura-lottery-go/pkg/utils"
)

var errServiceUnavailable = fiber.NewError(fiber.StatusServiceUnavailable, "服务未启用")

// LotteriesResponse 分组列表响应；Error 为兜底数据时的非致命错误
type LotteriesResponse struct {
	Lotteries []lottery.GroupedLottery `json:"lotteries"`
	Total     int                      `json:"total"`
	Source    store.Source             `json:"source"`
	Version   uint64                   `json:"version"`
	Error     string                   `json:"error,omitempty"`
}

// DrawsResponse 期数列表响应
type DrawsResponse struct {
	Draws   []lottery.Draw `json:"draws"`
	Total   int            `json:"total"`
	Source  store.Source   `json:"source"`
	Version uint64         `json:"version"`
	Error   string         `json:"error,omitempty"`
}

// CountdownResponse 倒计时响应
type CountdownResponse struct {
	ID        int64                  `json:"id"`
	EndDate   time.Time              `json:"end_date"`
	Remaining lottery.CountdownValue `json:"remaining"`
	Display   string                 `json:"display"`
	Resolved  bool                   `json:"resolved"`
}

// MissingTicket 引用了不存在抽奖的彩票
type MissingTicket struct {
	TicketID int64 `json:"ticket_id"`
	DrawID   int64 `json:"draw_id"`
}

// TicketsResponse 彩票列表响应
type TicketsResponse struct {
	Tickets []lottery.EnrichedTicket `json:"tickets"`
	Missing []MissingTicket          `json:"missing,omitempty"`
}

func snapErr(snap store.Snapshot) string {
	if snap.Err == nil {
		return ""
	}
	return snap.Err.Error()
}

// parseRange 解析 from / to 查询参数
func parseRange(c *fiber.Ctx) (from, to time.Time, err error) {
	if v := c.Query("from"); v != "" {
		if from, err = utils.ParseTimeParam(v); err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "无效的 from 参数")
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = utils.ParseTimeParam(v); err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "无效的 to 参数")
		}
	}
	return from, to, nil
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "无效的 ID")
	}
	return id, nil
}

// listLotteries 分组列表 ?active=&sort=&dir=&q=&from=&to=
func (s *Server) listLotteries(c *fiber.Ctx) error {
	cfg := s.deps.Lottery

	sortBy, err := lottery.ParseSortBy(c.Query("sort"), lottery.SortBy(cfg.DefaultSort))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	dir, err := lottery.ParseSortDirection(c.Query("dir"), lottery.SortDirection(cfg.DefaultDirection))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	from, to, err := parseRange(c)
	if err != nil {
		return err
	}

	snap := s.deps.Store.Snapshot()
	groups := lottery.ApplyFilter(snap.Groups, lottery.FilterSpec{
		ActiveOnly:    c.QueryBool("active", false),
		SortBy:        sortBy,
		SortDirection: dir,
		Query:         c.Query("q"),
		From:          from,
		To:            to,
		Locale:        cfg.Locale,
	})

	return c.JSON(LotteriesResponse{
		Lotteries: groups,
		Total:     len(groups),
		Source:    snap.Source,
		Version:   snap.Version,
		Error:     snapErr(snap),
	})
}

// getLottery 按名称获取分组
func (s *Server) getLottery(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "无效的名称")
	}

	g, ok := lottery.FindGroup(s.deps.Store.Snapshot().Groups, name)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "抽奖不存在")
	}
	return c.JSON(g)
}

// listDraws 期数列表 ?active=&from=&to=
func (s *Server) listDraws(c *fiber.Ctx) error {
	from, to, err := parseRange(c)
	if err != nil {
		return err
	}

	snap := s.deps.Store.Snapshot()
	draws := lottery.FilterDraws(snap.Draws, lottery.DrawFilter{
		ActiveOnly: c.QueryBool("active", false),
		From:       from,
		To:         to,
	})

	return c.JSON(DrawsResponse{
		Draws:   draws,
		Total:   len(draws),
		Source:  snap.Source,
		Version: snap.Version,
		Error:   snapErr(snap),
	})
}

// getDraw 单期详情
func (s *Server) getDraw(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	d, err := s.deps.Store.Draw(id)
	if err != nil {
		return err
	}
	return c.JSON(d)
}

// drawCountdown 单期倒计时
func (s *Server) drawCountdown(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	d, err := s.deps.Store.Draw(id)
	if err != nil {
		return err
	}

	return c.JSON(countdownOf(&d, lottery.Remaining(s.deps.Now(), d.EndDate)))
}

func countdownOf(d *lottery.Draw, v lottery.CountdownValue) CountdownResponse {
	return CountdownResponse{
		ID:        d.ID,
		EndDate:   d.EndDate,
		Remaining: v,
		Display:   v.String(),
		Resolved:  d.IsResolved(),
	}
}

// drawCountdownStream 以 SSE 每秒推送倒计时，结束或客户端断开后停止
func (s *Server) drawCountdownStream(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	d, err := s.deps.Store.Draw(id)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	cd := lottery.NewCountdown(d.EndDate, s.deps.Now)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cd.Start(ctx, func(v lottery.CountdownValue) {
			data, err := json.Marshal(countdownOf(&d, v))
			if err != nil {
				cancel()
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			if err := w.Flush(); err != nil {
				// 客户端已断开
				cancel()
			}
		})
		<-cd.Done()
	})
	return nil
}

// drawCard 单期卡片图片
func (s *Server) drawCard(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	d, err := s.deps.Store.Draw(id)
	if err != nil {
		return err
	}

	data, err := service.RenderDrawCard(d, s.deps.Now())
	if err != nil {
		return err
	}
	c.Type("png")
	return c.Send(data)
}

// refreshDraws 手动刷新并清空后端缓存；后端不可用时返回 502，仓库已切换到兜底数据
func (s *Server) refreshDraws(c *fiber.Ctx) error {
	if s.deps.Cache != nil {
		s.deps.Cache.Purge()
	}
	err := s.deps.Store.Refresh(c.UserContext())
	st := storeStatus(s.deps.Store.Snapshot())

	if err != nil && !errors.Is(err, store.ErrStaleResponse) {
		pkglogger.Warn().Err(err).Msg("手动刷新失败")
		return c.Status(fiber.StatusBadGateway).JSON(st)
	}
	return c.JSON(st)
}

// getProfile 用户资料
func (s *Server) getProfile(c *fiber.Ctx) error {
	if s.deps.Profiles == nil {
		return errServiceUnavailable
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	p, err := s.deps.Profiles.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// topUp 充值
func (s *Server) topUp(c *fiber.Ctx) error {
	if s.deps.Profiles == nil {
		return errServiceUnavailable
	}
	var req backend.TopUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "无效的请求体")
	}
	p, err := s.deps.Profiles.TopUp(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// listTickets 用户彩票
func (s *Server) listTickets(c *fiber.Ctx) error {
	if s.deps.Tickets == nil {
		return errServiceUnavailable
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}

	result, err := s.deps.Tickets.List(c.UserContext(), id)
	if err != nil {
		return err
	}

	resp := TicketsResponse{Tickets: result.Tickets}
	for _, m := range result.Missing {
		resp.Missing = append(resp.Missing, MissingTicket{TicketID: m.TicketID, DrawID: m.DrawID})
	}
	return c.JSON(resp)
}

// purchase 购票
func (s *Server) purchase(c *fiber.Ctx) error {
	if s.deps.Tickets == nil {
		return errServiceUnavailable
	}
	var req service.PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "无效的请求体")
	}
	ticket, err := s.deps.Tickets.Purchase(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(ticket)
}

// getTicket 按凭证查询彩票
func (s *Server) getTicket(c *fiber.Ctx) error {
	if s.deps.Tickets == nil {
		return errServiceUnavailable
	}
	t, err := s.deps.Tickets.Get(c.UserContext(), c.Params("uuid"))
	if err != nil {
		return err
	}
	return c.JSON(t)
}

// ticketQR 彩票凭证二维码，?size= 像素
func (s *Server) ticketQR(c *fiber.Ctx) error {
	if s.deps.Tickets == nil {
		return errServiceUnavailable
	}
	t, err := s.deps.Tickets.Get(c.UserContext(), c.Params("uuid"))
	if err != nil {
		return err
	}

	size := c.QueryInt("size", 256)
	if size < 64 || size > 1024 {
		return fiber.NewError(fiber.StatusBadRequest, "size 必须在 64-1024 之间")
	}
	data, err := imggen.GenerateTicketQR(c.Params("uuid"), size)
	if err != nil {
		return err
	}
	pkglogger.Debug().Int64("ticket", t.ID).Msg("生成彩票二维码")
	c.Type("png")
	return c.Send(data)
}

// battlePass 战令 ?profile_id=
func (s *Server) battlePass(c *fiber.Ctx) error {
	if s.deps.Profiles == nil {
		return errServiceUnavailable
	}
	bp, err := s.deps.Profiles.BattlePass(c.UserContext(), int64(c.QueryInt("profile_id", 0)))
	if err != nil {
		return err
	}
	return c.JSON(bp)
}
