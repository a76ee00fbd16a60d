package repository

import (
	"errors"

	"github.com/tipari/platform/internal/models"

	"gorm.io/gorm"
)

// ProjectRepository 项目数据访问接口
type ProjectRepository interface {
	WithTx(tx *gorm.DB) ProjectRepository

	Create(project *models.Project) error
	GetByID(id uint) (*models.Project, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	AssignOriginBroker(id, brokerID uint) (bool, error)
}

// GormProjectRepository GORM 项目仓储
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProjectRepository) WithTx(tx *gorm.DB) ProjectRepository {
	if tx == nil {
		return r
	}
	return &GormProjectRepository{db: tx}
}

// Create 创建项目
func (r *GormProjectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

// GetByID 按ID获取项目
func (r *GormProjectRepository) GetByID(id uint) (*models.Project, error) {
	if id == 0 {
		return nil, nil
	}
	var project models.Project
	if err := r.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

// UpdateFields 更新项目字段
func (r *GormProjectRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Project{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// AssignOriginBroker 一次性写入来源经纪人，已写入时不覆盖
func (r *GormProjectRepository) AssignOriginBroker(id, brokerID uint) (bool, error) {
	if id == 0 || brokerID == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Project{}).
		Where("id = ? AND origin_broker_id IS NULL", id).
		Update("origin_broker_id", brokerID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
