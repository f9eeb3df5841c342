// Package backend 抽奖后端 REST 客户端
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/smysle/sakura-lottery-go/internal/lottery"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
	"github.com/smysle/sakura-lottery-go/pkg/utils"
)

// ErrBadPayload 响应体结构不符合预期
var ErrBadPayload = errors.New("响应数据格式错误")

// TransportError 网络错误或非 2xx 响应
type TransportError struct {
	Op     string
	URL    string
	Status int // 网络错误时为 0
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Options 客户端选项
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RetryCount int
	CacheTTL   time.Duration
}

// Client 抽奖后端客户端
type Client struct {
	baseURL    string
	httpClient *resty.Client
	cache      *utils.Cache
	cacheTTL   time.Duration
}

// NewClient 创建新的后端客户端
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(opts.RetryCount)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetHeaders(map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
		"User-Agent":   "SakuraLottery/1.0 Go",
	})
	if opts.Token != "" {
		client.SetAuthToken(opts.Token)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: client,
		cache:      utils.NewCache(opts.CacheTTL),
		cacheTTL:   opts.CacheTTL,
	}
}

// Purge 清空接口缓存，手动刷新时调用
func (c *Client) Purge() {
	c.cache.Flush()
}

// request 发送请求，返回 2xx 响应体
func (c *Client) request(ctx context.Context, op, method, endpoint string, body interface{}) ([]byte, error) {
	url := c.baseURL + endpoint

	req := c.httpClient.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		logger.Error().Err(err).Str("url", url).Msg("HTTP 请求失败")
		return nil, &TransportError{Op: op, URL: url, Err: err}
	}

	if !resp.IsSuccess() {
		logger.Warn().Str("url", url).Int("status", resp.StatusCode()).Msg("API 请求失败")
		return nil, &TransportError{
			Op:     op,
			URL:    url,
			Status: resp.StatusCode(),
			Err:    errors.New(strings.TrimSpace(string(resp.Body()))),
		}
	}

	return resp.Body(), nil
}

// ListDraws 获取全部抽奖 GET /lottery/draws
//
// 响应可以是 {"draws": [...]} 也可以是裸数组。
func (c *Client) ListDraws(ctx context.Context) ([]lottery.Draw, error) {
	body, err := c.request(ctx, "list draws", http.MethodGet, "/lottery/draws", nil)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("list draws: %w", ErrBadPayload)
	}

	raw := gjson.ParseBytes(body)
	if !raw.IsArray() {
		raw = raw.Get("draws")
		if !raw.IsArray() {
			return nil, fmt.Errorf("list draws: 缺少 draws 字段: %w", ErrBadPayload)
		}
	}

	var draws []lottery.Draw
	if err := json.Unmarshal([]byte(raw.Raw), &draws); err != nil {
		return nil, fmt.Errorf("list draws: %w: %v", ErrBadPayload, err)
	}
	return draws, nil
}

// GetDraw 获取单个抽奖 GET /lottery/draws/{id}
func (c *Client) GetDraw(ctx context.Context, id int64) (*lottery.Draw, error) {
	key := "draw:" + strconv.FormatInt(id, 10)
	val, err := c.cache.GetOrSet(key, c.cacheTTL, func() (interface{}, error) {
		body, err := c.request(ctx, "get draw", http.MethodGet, fmt.Sprintf("/lottery/draws/%d", id), nil)
		if err != nil {
			return nil, err
		}
		var d lottery.Draw
		if err := json.Unmarshal(body, &d); err != nil {
			return nil, fmt.Errorf("get draw: %w: %v", ErrBadPayload, err)
		}
		return &d, nil
	})
	if err != nil {
		return nil, err
	}
	d := *val.(*lottery.Draw)
	return &d, nil
}

// Profile 用户资料
type Profile struct {
	ID            int64   `json:"id"`
	Currency      float64 `json:"currency"`
	Credits       float64 `json:"credits"`
	BattlepassLvl int     `json:"battlepass_lvl"`
	IsVIP         bool    `json:"is_vip"`
}

// GetProfile 获取用户资料 GET /profile/profiles/{id}
func (c *Client) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	val, err := c.cache.GetOrSet(profileKey(id), c.cacheTTL, func() (interface{}, error) {
		body, err := c.request(ctx, "get profile", http.MethodGet, fmt.Sprintf("/profile/profiles/%d", id), nil)
		if err != nil {
			return nil, err
		}
		var p Profile
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("get profile: %w: %v", ErrBadPayload, err)
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	p := *val.(*Profile)
	return &p, nil
}

// TopUpRequest 充值请求
type TopUpRequest struct {
	ProfileID int64    `json:"profile_id"`
	Currency  *float64 `json:"currency,omitempty"`
	Credits   *float64 `json:"credits,omitempty"`
}

// TopUp 充值 POST /profile/profiles/topup，成功后清除资料缓存
func (c *Client) TopUp(ctx context.Context, req TopUpRequest) (*Profile, error) {
	body, err := c.request(ctx, "topup", http.MethodPost, "/profile/profiles/topup", req)
	c.cache.Delete(profileKey(req.ProfileID))
	if err != nil {
		return nil, err
	}

	// 部分后端只返回 {"status": "ok"}
	if !gjson.GetBytes(body, "id").Exists() {
		return nil, nil
	}
	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("topup: %w: %v", ErrBadPayload, err)
	}
	return &p, nil
}

// BattlePassReward 战令等级奖励
type BattlePassReward struct {
	Level   int     `json:"level"`
	Reward  string  `json:"reward"`
	Amount  float64 `json:"amount"`
	Premium bool    `json:"premium"`
}

// BattlePass 战令赛季信息
type BattlePass struct {
	SeasonStart time.Time          `json:"season_start"`
	SeasonEnd   time.Time          `json:"season_end"`
	Rewards     []BattlePassReward `json:"rewards"`
}

// BattlePassView 获取战令 POST /battlepass/view
func (c *Client) BattlePassView(ctx context.Context) (*BattlePass, error) {
	val, err := c.cache.GetOrSet("battlepass", c.cacheTTL, func() (interface{}, error) {
		body, err := c.request(ctx, "battlepass view", http.MethodPost, "/battlepass/view", struct{}{})
		if err != nil {
			return nil, err
		}
		var bp BattlePass
		if err := json.Unmarshal(body, &bp); err != nil {
			return nil, fmt.Errorf("battlepass view: %w: %v", ErrBadPayload, err)
		}
		return &bp, nil
	})
	if err != nil {
		return nil, err
	}
	bp := *val.(*BattlePass)
	return &bp, nil
}

func profileKey(id int64) string {
	return "profile:" + strconv.FormatInt(id, 10)
}
