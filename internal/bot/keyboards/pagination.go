// Package keyboards 分页组件
package keyboards

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// Paginator 分页器配置
type Paginator struct {
	Total        int    // 总页数
	Current      int    // 当前页码
	CallbackFmt  string // 回调格式，如 "lot_page|%d"
	ShowQuickNav bool   // 是否显示快速翻页按钮 (+5/-5)
	QuickStep    int    // 快速翻页步长，默认5
	MaxButtons   int    // 最大页码按钮数（不含导航按钮）
}

// NewPaginator 创建分页器
func NewPaginator(total, current int, callbackFmt string) *Paginator {
	return &Paginator{
		Total:        total,
		Current:      current,
		CallbackFmt:  callbackFmt,
		ShowQuickNav: true,
		QuickStep:    5,
		MaxButtons:   5,
	}
}

// BuildKeyboard 构建分页键盘
func (p *Paginator) BuildKeyboard() *tele.ReplyMarkup {
	return p.BuildKeyboardWithExtra()
}

// BuildKeyboardWithExtra 构建带额外按钮的分页键盘
func (p *Paginator) BuildKeyboardWithExtra(extraRows ...tele.Row) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	allRows := p.rows(markup)
	allRows = append(allRows, extraRows...)
	if len(allRows) > 0 {
		markup.Inline(allRows...)
	}
	return markup
}

func (p *Paginator) rows(markup *tele.ReplyMarkup) []tele.Row {
	if p.Total <= 1 {
		return nil
	}

	var navRow []tele.Btn
	var pageRow []tele.Btn

	// 快速后退
	if p.ShowQuickNav && p.Current > p.QuickStep {
		navRow = append(navRow, markup.Data("⏮️-5", p.data(p.Current-p.QuickStep)))
	}

	// 上一页
	if p.Current > 1 {
		navRow = append(navRow, markup.Data("◀️", p.data(p.Current-1)))
	}

	// 页码
	start, end := p.calculatePageRange()
	for i := start; i <= end; i++ {
		if i == p.Current {
			pageRow = append(pageRow, markup.Data(fmt.Sprintf("·%d·", i), "noop"))
		} else {
			pageRow = append(pageRow, markup.Data(fmt.Sprintf("%d", i), p.data(i)))
		}
	}

	// 下一页
	if p.Current < p.Total {
		navRow = append(navRow, markup.Data("▶️", p.data(p.Current+1)))
	}

	// 快速前进
	if p.ShowQuickNav && p.Current+p.QuickStep <= p.Total {
		navRow = append(navRow, markup.Data("⏭️+5", p.data(p.Current+p.QuickStep)))
	}

	var rows []tele.Row
	if len(pageRow) > 0 {
		rows = append(rows, markup.Row(pageRow...))
	}
	if len(navRow) > 0 {
		rows = append(rows, markup.Row(navRow...))
	}
	return rows
}

func (p *Paginator) data(page int) string {
	return fmt.Sprintf(p.CallbackFmt, page)
}

// calculatePageRange 计算页码范围
func (p *Paginator) calculatePageRange() (start, end int) {
	maxButtons := p.MaxButtons
	if maxButtons <= 0 {
		maxButtons = 5
	}

	half := maxButtons / 2

	start = p.Current - half
	end = p.Current + half

	// 边界调整
	if start < 1 {
		end += (1 - start)
		start = 1
	}

	if end > p.Total {
		start -= (end - p.Total)
		end = p.Total
	}

	if start < 1 {
		start = 1
	}

	return
}

// PageCount 总页数，至少为 1
func PageCount(items, pageSize int) int {
	if pageSize <= 0 || items <= 0 {
		return 1
	}
	return (items + pageSize - 1) / pageSize
}

// LotteriesPagination 抽奖列表分页键盘，query 为空表示不搜索
func LotteriesPagination(page, total int, query string) *tele.ReplyMarkup {
	p := NewPaginator(total, page, "lot_page|%d|"+strings.ReplaceAll(query, "%", "%%"))
	return p.BuildKeyboardWithExtra(
		tele.Row{tele.Btn{Text: "❌ 关闭", Unique: "close"}},
	)
}

// TicketsPagination 彩票列表分页键盘
func TicketsPagination(page, total int) *tele.ReplyMarkup {
	p := NewPaginator(total, page, "tk_page|%d")
	return p.BuildKeyboardWithExtra(
		tele.Row{tele.Btn{Text: "❌ 关闭", Unique: "close"}},
	)
}
