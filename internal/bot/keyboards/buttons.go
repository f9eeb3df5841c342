// Package keyboards 键盘布局
package keyboards

import (
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// StartKeyboard 开始面板
func StartKeyboard(isAdmin bool) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	rows := []tele.Row{
		markup.Row(
			markup.Data("🎰 抽奖列表", "lot_page|1|"),
			markup.Data("🎫 我的彩票", "tk_page|1"),
		),
		markup.Row(
			markup.Data("👤 我的资料", "profile"),
			markup.Data("🏆 战令", "battlepass"),
		),
	}
	if isAdmin {
		rows = append(rows, markup.Row(markup.Data("🔄 刷新数据", "refresh")))
	}

	markup.Inline(rows...)
	return markup
}

// DrawKeyboard 单期抽奖操作
func DrawKeyboard(drawID int64, groupName string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(
			markup.Data("⏱ 刷新倒计时", fmt.Sprintf("draw_cd|%d", drawID)),
			markup.Data("📜 同名期数", "lot_page|1|"+groupName),
		),
		markup.Row(markup.Data("❌ 关闭", "close")),
	)
	return markup
}

// CloseKeyboard 仅关闭按钮
func CloseKeyboard() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("❌ 关闭", "close")))
	return markup
}
