// Package models 数据模型 - 彩票
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smysle/sakura-lottery-go/internal/lottery"
)

// Ticket 购票记录表
type Ticket struct {
	ID           int64                `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UUID         string               `gorm:"column:uuid;size:36;uniqueIndex" json:"uuid"`
	ProfileID    int64                `gorm:"column:profile_id;index" json:"profile_id"`
	DrawID       int64                `gorm:"column:draw_id;index" json:"draw_id"`
	ValueStr     string               `gorm:"column:value_str;size:128" json:"value_str"`
	PurchaseDate time.Time            `gorm:"column:purchase_date" json:"purchase_date"`
	Status       lottery.TicketStatus `gorm:"column:status;size:16;index;default:active" json:"status"`
	WinAmount    *float64             `gorm:"column:win_amount" json:"win_amount,omitempty"`
	Rail         lottery.PaymentRail  `gorm:"column:rail;size:16" json:"rail"`
	Price        float64              `gorm:"column:price" json:"price"`
	Notified     bool                 `gorm:"column:notified;default:false" json:"notified"` // 中奖通知已发送
}

// TableName 表名
func (Ticket) TableName() string {
	return "lottery_tickets"
}

// BeforeCreate 生成外部引用 UUID
func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == "" {
		t.UUID = uuid.NewString()
	}
	return nil
}

// IsFinal 是否已是终态
func (t *Ticket) IsFinal() bool {
	return t.Status == lottery.TicketWon || t.Status == lottery.TicketExpired
}

// ToUserTicket 转换为核心模型
func (t *Ticket) ToUserTicket() lottery.UserTicket {
	return lottery.UserTicket{
		ID:           t.ID,
		DrawID:       t.DrawID,
		ValueStr:     t.ValueStr,
		PurchaseDate: t.PurchaseDate,
		Status:       t.Status,
		WinAmount:    t.WinAmount,
	}
}
