// Package models 数据模型 - Telegram 账号绑定
package models

import "time"

// Binding Telegram 用户与抽奖资料的绑定
type Binding struct {
	TG        int64     `gorm:"column:tg;primaryKey;autoIncrement:false" json:"tg"`
	ProfileID int64     `gorm:"column:profile_id;index" json:"profile_id"`
	VIP       bool      `gorm:"column:vip" json:"vip"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 表名
func (Binding) TableName() string {
	return "lottery_bindings"
}
