package keyboards

import (
	"testing"

	tele "gopkg.in/telebot.v3"
)

func TestPaginator_calculatePageRange(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		current    int
		start, end int
	}{
		{"首页", 10, 1, 1, 5},
		{"中间", 10, 5, 3, 7},
		{"末页", 10, 10, 6, 10},
		{"页数不足", 3, 2, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPaginator(tt.total, tt.current, "x|%d")
			start, end := p.calculatePageRange()
			if start != tt.start || end != tt.end {
				t.Errorf("calculatePageRange() = (%d, %d), want (%d, %d)", start, end, tt.start, tt.end)
			}
		})
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		items, size, want int
	}{
		{0, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{11, 5, 3},
		{3, 0, 1},
	}
	for _, tt := range tests {
		if got := PageCount(tt.items, tt.size); got != tt.want {
			t.Errorf("PageCount(%d, %d) = %d, want %d", tt.items, tt.size, got, tt.want)
		}
	}
}

func collect(m *tele.ReplyMarkup) []string {
	var out []string
	for _, row := range m.InlineKeyboard {
		for _, b := range row {
			out = append(out, b.Unique)
		}
	}
	return out
}

func TestLotteriesPagination(t *testing.T) {
	m := LotteriesPagination(2, 3, "50%")
	data := collect(m)

	want := map[string]bool{
		"lot_page|1|50%": false,
		"lot_page|3|50%": false,
	}
	for _, d := range data {
		if _, ok := want[d]; ok {
			want[d] = true
		}
	}
	for d, seen := range want {
		if !seen {
			t.Errorf("缺少回调 %q，实际 %v", d, data)
		}
	}
}

func TestLotteriesPagination_SinglePage(t *testing.T) {
	m := LotteriesPagination(1, 1, "")
	if len(m.InlineKeyboard) != 1 {
		t.Errorf("单页只应有关闭按钮，实际 %d 行", len(m.InlineKeyboard))
	}
}
