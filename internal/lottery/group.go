package lottery

import (
	"errors"
)

// GroupDraws 按名称把抽奖列表分组
//
// 分组顺序为名称首次出现的顺序，组内保持输入顺序。类型不一致的分组仍然输出
// （Type 为 LotteryTypeUnknown 并标记 Inconsistent），同时在返回的错误中逐一报告。
func GroupDraws(draws []Draw) ([]GroupedLottery, error) {
	index := make(map[string]int)
	groups := make([]GroupedLottery, 0)

	for _, d := range draws {
		i, ok := index[d.Name]
		if !ok {
			i = len(groups)
			index[d.Name] = i
			groups = append(groups, GroupedLottery{Name: d.Name})
		}
		groups[i].Draws = append(groups[i].Draws, d)
	}

	var errs []error
	for i := range groups {
		g := &groups[i]
		g.TotalDraws = len(g.Draws)

		typ, err := groupType(g.Name, g.Draws)
		if err != nil {
			g.Inconsistent = true
			errs = append(errs, err)
		}
		g.Type = typ

		if next := SelectNextDraw(g.Draws); next >= 0 {
			g.NextDraw = &g.Draws[next]
		}
	}

	return groups, errors.Join(errs...)
}

// groupType 校验组内类型一致
func groupType(name string, draws []Draw) (LotteryType, error) {
	set := make(map[LotteryType]struct{})
	for i := range draws {
		set[draws[i].LotteryType] = struct{}{}
	}
	if len(set) == 1 {
		return draws[0].LotteryType, nil
	}
	return LotteryTypeUnknown, &InconsistentTypeError{Name: name, Types: sortedTypes(set)}
}

// SelectNextDraw 选出下一期，返回其下标；空列表返回 -1
//
// 优先选择进行中且 end_date 最早的一期；没有进行中的则取 end_date 最晚的一期。
// end_date 相同时取较小的 id。
func SelectNextDraw(draws []Draw) int {
	best := -1
	for i := range draws {
		if !draws[i].IsActive {
			continue
		}
		if best < 0 || earlier(&draws[i], &draws[best]) {
			best = i
		}
	}
	if best >= 0 {
		return best
	}

	for i := range draws {
		if best < 0 || later(&draws[i], &draws[best]) {
			best = i
		}
	}
	return best
}

func earlier(a, b *Draw) bool {
	if a.EndDate.Equal(b.EndDate) {
		return a.ID < b.ID
	}
	return a.EndDate.Before(b.EndDate)
}

func later(a, b *Draw) bool {
	if a.EndDate.Equal(b.EndDate) {
		return a.ID < b.ID
	}
	return a.EndDate.After(b.EndDate)
}

// FindGroup 按名称查找分组
func FindGroup(groups []GroupedLottery, name string) (*GroupedLottery, bool) {
	for i := range groups {
		if groups[i].Name == name {
			return &groups[i], true
		}
	}
	return nil, false
}
