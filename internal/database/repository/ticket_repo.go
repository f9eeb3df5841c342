// Package repository 彩票数据仓库
package repository

import (
	"gorm.io/gorm"

	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/lottery"
)

// TicketRepository 彩票仓库
type TicketRepository struct {
	db *gorm.DB
}

// NewTicketRepository 创建彩票仓库
func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create 创建购票记录
func (r *TicketRepository) Create(t *models.Ticket) error {
	return r.db.Create(t).Error
}

// GetByUUID 根据 UUID 获取
func (r *TicketRepository) GetByUUID(id string) (*models.Ticket, error) {
	var t models.Ticket
	if err := r.db.Where("uuid = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByProfile 用户的全部彩票，按购买时间倒序
func (r *TicketRepository) ListByProfile(profileID int64) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.Where("profile_id = ?", profileID).
		Order("purchase_date DESC, id DESC").
		Find(&tickets).Error
	return tickets, err
}

// ListUnsettled 未开奖或中奖未通知的彩票
func (r *TicketRepository) ListUnsettled() ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.Where("status = ? OR (status = ? AND notified = ?)", lottery.TicketActive, lottery.TicketWon, false).
		Order("id ASC").
		Find(&tickets).Error
	return tickets, err
}

// UpdateOutcome 更新派生状态与奖金
func (r *TicketRepository) UpdateOutcome(id int64, status lottery.TicketStatus, winAmount *float64) error {
	return r.db.Model(&models.Ticket{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"win_amount": winAmount,
	}).Error
}

// MarkNotified 标记中奖通知已发送
func (r *TicketRepository) MarkNotified(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Ticket{}).Where("id IN ?", ids).Update("notified", true).Error
}

// CountByDraw 某期已售彩票数
func (r *TicketRepository) CountByDraw(drawID int64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Ticket{}).Where("draw_id = ?", drawID).Count(&count).Error
	return count, err
}
