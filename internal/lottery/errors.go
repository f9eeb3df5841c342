package lottery

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInconsistentData 数据不一致（同名抽奖类型混杂、彩票引用不存在的抽奖）
var ErrInconsistentData = errors.New("数据不一致")

// InconsistentTypeError 同名分组内 lottery_type 不一致
type InconsistentTypeError struct {
	Name  string
	Types []LotteryType
}

func (e *InconsistentTypeError) Error() string {
	names := make([]string, 0, len(e.Types))
	for _, t := range e.Types {
		names = append(names, t.String())
	}
	return fmt.Sprintf("抽奖 %q 的类型不一致: %s", e.Name, strings.Join(names, ", "))
}

// Is 支持 errors.Is(err, ErrInconsistentData)
func (e *InconsistentTypeError) Is(target error) bool {
	return target == ErrInconsistentData
}

// MissingDrawError 彩票引用了不存在的抽奖
type MissingDrawError struct {
	TicketID int64
	DrawID   int64
}

func (e *MissingDrawError) Error() string {
	return fmt.Sprintf("彩票 %d 引用的抽奖 %d 不存在", e.TicketID, e.DrawID)
}

// Is 支持 errors.Is(err, ErrInconsistentData)
func (e *MissingDrawError) Is(target error) bool {
	return target == ErrInconsistentData
}

func sortedTypes(set map[LotteryType]struct{}) []LotteryType {
	types := make([]LotteryType, 0, len(set))
	for t := range set {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
