// Package metrics Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 刷新结果
const (
	RefreshSuccess  = "success"
	RefreshFallback = "fallback"
	RefreshStale    = "stale"
)

// Metrics 服务指标
type Metrics struct {
	Registry         *prometheus.Registry
	RefreshTotal     *prometheus.CounterVec
	Draws            prometheus.Gauge
	Groups           prometheus.Gauge
	TicketsPurchased prometheus.Counter
	TicketsSettled   *prometheus.CounterVec
}

// New 创建独立注册表下的指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RefreshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lottery_refresh_total",
			Help: "抽奖列表刷新次数",
		}, []string{"result"}),
		Draws: f.NewGauge(prometheus.GaugeOpts{
			Name: "lottery_draws",
			Help: "当前抽奖期数",
		}),
		Groups: f.NewGauge(prometheus.GaugeOpts{
			Name: "lottery_groups",
			Help: "当前抽奖分组数",
		}),
		TicketsPurchased: f.NewCounter(prometheus.CounterOpts{
			Name: "lottery_tickets_purchased_total",
			Help: "购票次数",
		}),
		TicketsSettled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lottery_tickets_settled_total",
			Help: "结算的彩票数",
		}, []string{"status"}),
	}
}

// ObserveRefresh 记录一次刷新
func (m *Metrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
}

// SetSize 记录当前期数与分组数
func (m *Metrics) SetSize(draws, groups int) {
	if m == nil {
		return
	}
	m.Draws.Set(float64(draws))
	m.Groups.Set(float64(groups))
}
