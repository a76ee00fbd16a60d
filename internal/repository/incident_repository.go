package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/tipari/platform/internal/models"

	"gorm.io/gorm"
)

// IncidentRepository 系统事故数据访问接口
type IncidentRepository interface {
	Create(incident *models.SystemIncident) error
	GetByID(id uint) (*models.SystemIncident, error)
	List(filter IncidentListFilter) ([]models.SystemIncident, int64, error)
	Resolve(id uint, resolvedAt time.Time) error
}

// GormIncidentRepository GORM 系统事故仓储
type GormIncidentRepository struct {
	db *gorm.DB
}

// NewIncidentRepository 创建系统事故仓储
func NewIncidentRepository(db *gorm.DB) *GormIncidentRepository {
	return &GormIncidentRepository{db: db}
}

// Create 写入事故记录
func (r *GormIncidentRepository) Create(incident *models.SystemIncident) error {
	return r.db.Create(incident).Error
}

// GetByID 按ID获取事故记录
func (r *GormIncidentRepository) GetByID(id uint) (*models.SystemIncident, error) {
	if id == 0 {
		return nil, nil
	}
	var incident models.SystemIncident
	if err := r.db.First(&incident, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &incident, nil
}

// List 查询事故列表
func (r *GormIncidentRepository) List(filter IncidentListFilter) ([]models.SystemIncident, int64, error) {
	query := r.db.Model(&models.SystemIncident{})
	if source := strings.TrimSpace(filter.Source); source != "" {
		query = query.Where("source = ?", source)
	}
	if severity := strings.TrimSpace(filter.Severity); severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.SystemIncident
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Resolve 标记事故已处理
func (r *GormIncidentRepository) Resolve(id uint, resolvedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.SystemIncident{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      "resolved",
			"resolved_at": resolvedAt,
		}).Error
}
