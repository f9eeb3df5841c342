package lottery

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortBy 排序字段
type SortBy string

const (
	SortByDate       SortBy = "date"
	SortByName       SortBy = "name"
	SortByPopularity SortBy = "popularity" // 数据模型没有热度字段，用售票总数近似
)

// SortDirection 排序方向
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortBy 解析排序字段，空字符串返回默认值
func ParseSortBy(s string, def SortBy) (SortBy, error) {
	switch SortBy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return def, nil
	case SortByDate:
		return SortByDate, nil
	case SortByName:
		return SortByName, nil
	case SortByPopularity:
		return SortByPopularity, nil
	}
	return "", fmt.Errorf("不支持的排序字段: %s", s)
}

// ParseSortDirection 解析排序方向，空字符串返回默认值
func ParseSortDirection(s string, def SortDirection) (SortDirection, error) {
	switch SortDirection(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return def, nil
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return "", fmt.Errorf("不支持的排序方向: %s", s)
}

// FilterSpec 分组列表的筛选条件
type FilterSpec struct {
	ActiveOnly    bool
	SortBy        SortBy
	SortDirection SortDirection
	Query         string    // 名称与描述的子串搜索
	From          time.Time // NextDraw.EndDate 下界（含），零值不限
	To            time.Time // NextDraw.EndDate 上界（含），零值不限
	Locale        string    // 名称排序使用的语言，默认 und
}

// ApplyFilter 筛选并排序分组，返回新的切片，不修改输入
func ApplyFilter(groups []GroupedLottery, spec FilterSpec) []GroupedLottery {
	result := Search(groups, spec.Query)

	kept := result[:0]
	for _, g := range result {
		if g.NextDraw == nil {
			continue
		}
		if spec.ActiveOnly && !g.NextDraw.IsActive {
			continue
		}
		if !inRange(g.NextDraw.EndDate, spec.From, spec.To) {
			continue
		}
		kept = append(kept, g)
	}

	sortGroups(kept, spec)
	return kept
}

// Search 按名称与描述做不区分大小写的子串匹配，返回副本
func Search(groups []GroupedLottery, query string) []GroupedLottery {
	q := strings.ToLower(strings.TrimSpace(query))
	result := make([]GroupedLottery, 0, len(groups))
	for _, g := range groups {
		if q == "" || matchGroup(&g, q) {
			result = append(result, g)
		}
	}
	return result
}

func matchGroup(g *GroupedLottery, q string) bool {
	if strings.Contains(strings.ToLower(g.Name), q) {
		return true
	}
	for i := range g.Draws {
		if strings.Contains(strings.ToLower(g.Draws[i].DescriptionMD), q) {
			return true
		}
	}
	return false
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

// sortGroups 稳定排序；降序通过反转比较函数实现，相等的键保持原有相对顺序
func sortGroups(groups []GroupedLottery, spec FilterSpec) {
	var less func(a, b *GroupedLottery) bool

	switch spec.SortBy {
	case SortByName:
		tag := language.Und
		if spec.Locale != "" {
			tag = language.Make(spec.Locale)
		}
		c := collate.New(tag)
		less = func(a, b *GroupedLottery) bool {
			return c.CompareString(a.Name, b.Name) < 0
		}
	case SortByPopularity:
		less = func(a, b *GroupedLottery) bool {
			sa, sb := a.TicketsSold(), b.TicketsSold()
			if sa != sb {
				return sa < sb
			}
			return a.TotalDraws < b.TotalDraws
		}
	case SortByDate:
		less = func(a, b *GroupedLottery) bool {
			return a.NextDraw.EndDate.Before(b.NextDraw.EndDate)
		}
	default:
		return
	}

	if spec.SortDirection == SortDesc {
		asc := less
		less = func(a, b *GroupedLottery) bool { return asc(b, a) }
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return less(&groups[i], &groups[j])
	})
}

// DrawFilter 原始抽奖列表的筛选条件
type DrawFilter struct {
	ActiveOnly bool
	From       time.Time
	To         time.Time
}

// FilterDraws 筛选原始抽奖，按 end_date、id 升序返回副本
func FilterDraws(draws []Draw, f DrawFilter) []Draw {
	result := make([]Draw, 0, len(draws))
	for _, d := range draws {
		if f.ActiveOnly && !d.IsActive {
			continue
		}
		if !inRange(d.EndDate, f.From, f.To) {
			continue
		}
		result = append(result, d)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return earlier(&result[i], &result[j])
	})
	return result
}
