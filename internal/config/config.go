// Package config 配置管理模块
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config 全局配置结构
type Config struct {
	BotName  string  `json:"bot_name"`
	BotToken string  `json:"bot_token"`
	Owner    int64   `json:"owner"`
	Admins   []int64 `json:"admins"`
	Debug    bool    `json:"debug"`
	LogDir   string  `json:"log_dir"`

	Backend   BackendConfig   `json:"backend"`
	Database  DatabaseConfig  `json:"database"`
	API       APIConfig       `json:"api"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Lottery   LotteryConfig   `json:"lottery"`
}

// BackendConfig 抽奖后端接口配置
type BackendConfig struct {
	URL            string `json:"url"`
	Token          string `json:"token"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	RetryCount     int    `json:"retry_count"`
	CacheSeconds   int    `json:"cache_seconds"`
	KeepLastGood   bool   `json:"keep_last_good"` // 刷新失败时保留上次数据
}

// Timeout 请求超时
func (c BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL 接口缓存时间
func (c BackendConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheSeconds) * time.Second
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"` // mysql 或 sqlite
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Path     string `json:"path"` // sqlite 文件路径

	BackupDir string `json:"backup_dir"`
}

// APIConfig Web API 配置
type APIConfig struct {
	Enabled      bool     `json:"enabled"`
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	AllowOrigins []string `json:"allow_origins"`
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	RefreshSeconds int    `json:"refresh_seconds"`
	SettleSeconds  int    `json:"settle_seconds"`
	NotifyWinners  bool   `json:"notify_winners"`
	BackupCron     string `json:"backup_cron"` // 为空表示不自动备份
	BackupKeepDays int    `json:"backup_keep_days"`
}

// LotteryConfig 抽奖展示配置
type LotteryConfig struct {
	Locale           string `json:"locale"`
	PageSize         int    `json:"page_size"`
	DefaultSort      string `json:"default_sort"`
	DefaultDirection string `json:"default_direction"`
	FontPath         string `json:"font_path"`
}

var (
	cfg     *Config
	cfgLock sync.RWMutex
)

// Load 加载配置文件，随后用环境变量覆盖
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// .env 可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}
	config.applyEnv(os.LookupEnv)

	// 设置默认值
	config.setDefaults()

	cfgLock.Lock()
	cfg = &config
	cfgLock.Unlock()

	return &config, nil
}

// Get 获取全局配置（线程安全）
func Get() *Config {
	cfgLock.RLock()
	defer cfgLock.RUnlock()
	return cfg
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv 环境变量覆盖
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("LOTTERY_BOT_TOKEN", &c.BotToken)
	str("LOTTERY_BACKEND_URL", &c.Backend.URL)
	str("LOTTERY_BACKEND_TOKEN", &c.Backend.Token)
	str("LOTTERY_DB_DRIVER", &c.Database.Driver)
	str("LOTTERY_DB_HOST", &c.Database.Host)
	num("LOTTERY_DB_PORT", &c.Database.Port)
	str("LOTTERY_DB_USER", &c.Database.User)
	str("LOTTERY_DB_PASSWORD", &c.Database.Password)
	str("LOTTERY_DB_NAME", &c.Database.Name)
	str("LOTTERY_DB_PATH", &c.Database.Path)
	num("LOTTERY_API_PORT", &c.API.Port)
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.BotName == "" {
		c.BotName = "SakuraLottery"
	}
	if c.LogDir == "" {
		c.LogDir = "log"
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 10
	}
	if c.Backend.RetryCount == 0 {
		c.Backend.RetryCount = 2
	}
	if c.Backend.CacheSeconds == 0 {
		c.Backend.CacheSeconds = 30
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Path == "" {
		c.Database.Path = "lottery.db"
	}
	if c.Database.BackupDir == "" {
		c.Database.BackupDir = "backups"
	}
	if c.Scheduler.BackupKeepDays == 0 {
		c.Scheduler.BackupKeepDays = 7
	}
	if c.API.Port == 0 {
		c.API.Port = 8838
	}
	if len(c.API.AllowOrigins) == 0 {
		c.API.AllowOrigins = []string{"*"}
	}
	if c.Scheduler.RefreshSeconds == 0 {
		c.Scheduler.RefreshSeconds = 60
	}
	if c.Scheduler.SettleSeconds == 0 {
		c.Scheduler.SettleSeconds = 300
	}
	if c.Lottery.Locale == "" {
		c.Lottery.Locale = "en"
	}
	if c.Lottery.PageSize == 0 {
		c.Lottery.PageSize = 5
	}
	if c.Lottery.DefaultSort == "" {
		c.Lottery.DefaultSort = "date"
	}
	if c.Lottery.DefaultDirection == "" {
		c.Lottery.DefaultDirection = "asc"
	}
}

// IsAdmin 判断是否是管理员
func (c *Config) IsAdmin(userID int64) bool {
	if userID == c.Owner {
		return true
	}
	for _, admin := range c.Admins {
		if admin == userID {
			return true
		}
	}
	return false
}

// IsOwner 判断是否是 Owner
func (c *Config) IsOwner(userID int64) bool {
	return userID == c.Owner
}

// configPath 存储配置文件路径
var configPath string

// GetConfigPath 获取配置文件路径
func GetConfigPath() string {
	return configPath
}

// SetConfigPath 设置配置文件路径
func SetConfigPath(path string) {
	configPath = path
}

// UpdateAndSave 更新配置并保存
func UpdateAndSave(updateFn func(*Config)) error {
	cfgLock.Lock()
	defer cfgLock.Unlock()

	if cfg == nil {
		return nil
	}

	updateFn(cfg)

	if configPath != "" {
		return cfg.Save(configPath)
	}
	return nil
}

// AddAdmin 添加管理员
func (c *Config) AddAdmin(userID int64) bool {
	for _, admin := range c.Admins {
		if admin == userID {
			return false // 已经是管理员
		}
	}
	c.Admins = append(c.Admins, userID)
	return true
}

// RemoveAdmin 移除管理员
func (c *Config) RemoveAdmin(userID int64) bool {
	for i, admin := range c.Admins {
		if admin == userID {
			c.Admins = append(c.Admins[:i], c.Admins[i+1:]...)
			return true
		}
	}
	return false
}
