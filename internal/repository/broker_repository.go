package repository

import (
	"errors"
	"strings"

	"github.com/tipari/platform/internal/models"

	"gorm.io/gorm"
)

// BrokerRepository 经纪人数据访问接口
type BrokerRepository interface {
	Create(broker *models.Broker) error
	GetByID(id uint) (*models.Broker, error)
	GetByEmail(email string) (*models.Broker, error)
}

// GormBrokerRepository GORM 经纪人仓储
type GormBrokerRepository struct {
	db *gorm.DB
}

// NewBrokerRepository 创建经纪人仓储
func NewBrokerRepository(db *gorm.DB) *GormBrokerRepository {
	return &GormBrokerRepository{db: db}
}

// Create 创建经纪人
func (r *GormBrokerRepository) Create(broker *models.Broker) error {
	return r.db.Create(broker).Error
}

// GetByID 按ID获取经纪人
func (r *GormBrokerRepository) GetByID(id uint) (*models.Broker, error) {
	if id == 0 {
		return nil, nil
	}
	var broker models.Broker
	if err := r.db.First(&broker, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &broker, nil
}

// GetByEmail 按邮箱获取经纪人
func (r *GormBrokerRepository) GetByEmail(email string) (*models.Broker, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, nil
	}
	var broker models.Broker
	if err := r.db.Where("email = ?", normalized).First(&broker).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &broker, nil
}
