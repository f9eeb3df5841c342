// Package config 配置模块测试
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_IsAdmin(t *testing.T) {
	cfg := &Config{
		Owner:  12345,
		Admins: []int64{11111, 22222},
	}

	tests := []struct {
		name     string
		userID   int64
		expected bool
	}{
		{"Owner 是管理员", 12345, true},
		{"Admin 是管理员", 11111, true},
		{"Admin2 是管理员", 22222, true},
		{"普通用户不是管理员", 99999, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.IsAdmin(tt.userID); got != tt.expected {
				t.Errorf("IsAdmin(%d) = %v, want %v", tt.userID, got, tt.expected)
			}
		})
	}
}

func TestConfig_AddRemoveAdmin(t *testing.T) {
	cfg := &Config{Admins: []int64{11111}}

	if !cfg.AddAdmin(22222) {
		t.Error("AddAdmin(22222) 应该返回 true")
	}
	if cfg.AddAdmin(22222) {
		t.Error("AddAdmin(22222) 重复添加应该返回 false")
	}
	if !cfg.RemoveAdmin(11111) {
		t.Error("RemoveAdmin(11111) 应该返回 true")
	}
	if len(cfg.Admins) != 1 || cfg.Admins[0] != 22222 {
		t.Errorf("移除后管理员列表不正确: %v", cfg.Admins)
	}
	if cfg.RemoveAdmin(99999) {
		t.Error("RemoveAdmin(99999) 应该返回 false")
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.setDefaults()

	if cfg.Backend.TimeoutSeconds != 10 {
		t.Errorf("默认超时应该是 10，实际是 %d", cfg.Backend.TimeoutSeconds)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("默认数据库驱动应该是 mysql，实际是 %s", cfg.Database.Driver)
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("默认数据库端口应该是 3306，实际是 %d", cfg.Database.Port)
	}
	if cfg.API.Port != 8838 {
		t.Errorf("默认 API 端口应该是 8838，实际是 %d", cfg.API.Port)
	}
	if cfg.Scheduler.RefreshSeconds != 60 {
		t.Errorf("默认刷新间隔应该是 60，实际是 %d", cfg.Scheduler.RefreshSeconds)
	}
	if cfg.Lottery.PageSize != 5 {
		t.Errorf("默认分页大小应该是 5，实际是 %d", cfg.Lottery.PageSize)
	}
	if cfg.Lottery.DefaultSort != "date" || cfg.Lottery.DefaultDirection != "asc" {
		t.Errorf("默认排序不正确: %s %s", cfg.Lottery.DefaultSort, cfg.Lottery.DefaultDirection)
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	env := map[string]string{
		"LOTTERY_BACKEND_URL": "https://api.example.com",
		"LOTTERY_DB_PORT":     "3307",
		"LOTTERY_API_PORT":    "not-a-number",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := &Config{API: APIConfig{Port: 9000}}
	cfg.applyEnv(lookup)

	if cfg.Backend.URL != "https://api.example.com" {
		t.Errorf("Backend.URL = %s", cfg.Backend.URL)
	}
	if cfg.Database.Port != 3307 {
		t.Errorf("Database.Port = %d", cfg.Database.Port)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("非法数字不应覆盖 API.Port，实际是 %d", cfg.API.Port)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{"bot_name":"test","backend":{"url":"http://localhost:9000"},"lottery":{"page_size":8}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LOTTERY_BACKEND_URL", "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BotName != "test" || cfg.Backend.URL != "http://localhost:9000" {
		t.Errorf("配置内容不正确: %+v", cfg)
	}
	if cfg.Lottery.PageSize != 8 {
		t.Errorf("PageSize = %d, want 8", cfg.Lottery.PageSize)
	}
	if Get() != cfg {
		t.Error("Get() 应该返回最近加载的配置")
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("加载不存在的文件应该返回错误")
	}
}
