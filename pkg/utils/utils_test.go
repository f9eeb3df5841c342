package utils

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimeParam(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"", time.Time{}, false},
		{"2026-01-16", time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC), false},
		{"2026-01-16T10:30:00Z", time.Date(2026, 1, 16, 10, 30, 0, 0, time.UTC), false},
		{"yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimeParam(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimeParam(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimeParam(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("抽奖活动说明", 4); got != "抽奖活…" {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate() = %q", got)
	}
}

func TestCache_GetOrSet(t *testing.T) {
	c := NewCache(time.Minute)
	calls := 0
	fn := func() (interface{}, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrSet("k", 0, fn)
		if err != nil || v.(int) != 42 {
			t.Fatalf("GetOrSet() = %v, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("fn 调用次数 = %d, want 1", calls)
	}

	_, err := c.GetOrSet("bad", 0, func() (interface{}, error) { return nil, errors.New("boom") })
	if err == nil {
		t.Error("fn 出错时应返回错误")
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("出错时不应写入缓存")
	}

	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Delete 后不应命中")
	}
}
