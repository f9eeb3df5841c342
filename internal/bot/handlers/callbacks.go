package handlers

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/smysle/sakura-lottery-go/internal/bot/keyboards"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// editOrReply 编辑消息或发送新消息，图片消息改为编辑 caption
func editOrReply(c tele.Context, text string, opts ...interface{}) error {
	msg := c.Message()
	if msg == nil {
		return c.Send(text, opts...)
	}

	if msg.Photo != nil {
		if _, err := c.Bot().EditCaption(msg, text, opts...); err != nil {
			logger.Debug().Err(err).Msg("EditCaption failed, sending new message")
			return c.Send(text, opts...)
		}
		return nil
	}

	if err := c.Edit(text, opts...); err != nil {
		logger.Debug().Err(err).Msg("Edit failed, sending new message")
		return c.Send(text, opts...)
	}
	return nil
}

// parseCallback 拆分回调数据 "\f{action}|{args}"
func parseCallback(data string) (action string, args []string) {
	data = strings.TrimPrefix(data, "\f")
	parts := strings.SplitN(data, "|", 3)
	return parts[0], parts[1:]
}

// OnCallback 回调查询处理器
func (h *Handler) OnCallback(c tele.Context) error {
	action, args := parseCallback(c.Callback().Data)

	switch action {
	case "noop":
		return c.Respond()

	case "close":
		_ = c.Respond()
		return c.Delete()

	case "lot_page":
		page, query := 1, ""
		if len(args) > 0 {
			page, _ = strconv.Atoi(args[0])
		}
		if len(args) > 1 {
			query = args[1]
		}
		if page < 1 {
			page = 1
		}
		_ = c.Respond()
		return h.showLotteries(c, page, query, true)

	case "tk_page":
		page := 1
		if len(args) > 0 {
			page, _ = strconv.Atoi(args[0])
		}
		if page < 1 {
			page = 1
		}
		_ = c.Respond()
		return h.showTickets(c, page, true)

	case "draw_cd":
		if len(args) == 0 {
			return c.Respond()
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Respond()
		}
		d, err := h.store.Draw(id)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "抽奖不存在", ShowAlert: true})
		}
		_ = c.Respond()
		return editOrReply(c, FormatDraw(d, h.now()), keyboards.DrawKeyboard(d.ID, truncateBytes(d.Name, maxQueryLen)), tele.ModeMarkdown)

	case "profile":
		_ = c.Respond()
		return h.Profile(c)

	case "battlepass":
		_ = c.Respond()
		return h.BattlePass(c)

	case "refresh":
		if !h.cfg.IsAdmin(c.Sender().ID) {
			return c.Respond(&tele.CallbackResponse{Text: "❌ 您没有权限执行此操作", ShowAlert: true})
		}
		_ = c.Respond()
		return h.Refresh(c)

	default:
		logger.Debug().Str("action", action).Msg("未知回调")
		return c.Respond()
	}
}
