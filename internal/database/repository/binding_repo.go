package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smysle/sakura-lottery-go/internal/database/models"
)

// BindingRepository 账号绑定仓库
type BindingRepository struct {
	db *gorm.DB
}

// NewBindingRepository 创建绑定仓库
func NewBindingRepository(db *gorm.DB) *BindingRepository {
	return &BindingRepository{db: db}
}

// Bind 绑定或改绑
func (r *BindingRepository) Bind(tg, profileID int64, vip bool) error {
	b := models.Binding{TG: tg, ProfileID: profileID, VIP: vip}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tg"}},
		DoUpdates: clause.AssignmentColumns([]string{"profile_id", "vip", "updated_at"}),
	}).Create(&b).Error
}

// GetByTG 根据 TG ID 获取
func (r *BindingRepository) GetByTG(tg int64) (*models.Binding, error) {
	var b models.Binding
	if err := r.db.Where("tg = ?", tg).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByProfiles 资料 ID 对应的所有绑定
func (r *BindingRepository) ListByProfiles(profileIDs []int64) ([]models.Binding, error) {
	var bindings []models.Binding
	if len(profileIDs) == 0 {
		return bindings, nil
	}
	err := r.db.Where("profile_id IN ?", profileIDs).Find(&bindings).Error
	return bindings, err
}

// Unbind 解除绑定
func (r *BindingRepository) Unbind(tg int64) error {
	return r.db.Where("tg = ?", tg).Delete(&models.Binding{}).Error
}
