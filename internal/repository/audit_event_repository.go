package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/tipari/platform/internal/models"

	"gorm.io/gorm"
)

// AuditEventRepository 审计事件数据访问接口
type AuditEventRepository interface {
	WithTx(tx *gorm.DB) AuditEventRepository

	Create(event *models.AuditEvent) error
	List(filter AuditEventListFilter) ([]models.AuditEvent, int64, error)
	ListByActionsSince(actions []string, since time.Time) ([]models.AuditEvent, error)
	GetFirstAfter(entityType, entityID string, actions []string, after time.Time) (*models.AuditEvent, error)
}

// GormAuditEventRepository GORM 审计事件仓储
type GormAuditEventRepository struct {
	db *gorm.DB
}

// NewAuditEventRepository 创建审计事件仓储
func NewAuditEventRepository(db *gorm.DB) *GormAuditEventRepository {
	return &GormAuditEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAuditEventRepository) WithTx(tx *gorm.DB) AuditEventRepository {
	if tx == nil {
		return r
	}
	return &GormAuditEventRepository{db: tx}
}

// Create 写入审计事件
func (r *GormAuditEventRepository) Create(event *models.AuditEvent) error {
	return r.db.Create(event).Error
}

// List 查询审计事件列表
func (r *GormAuditEventRepository) List(filter AuditEventListFilter) ([]models.AuditEvent, int64, error) {
	query := r.db.Model(&models.AuditEvent{})
	if action := strings.TrimSpace(filter.Action); action != "" {
		query = query.Where("action = ?", action)
	}
	if entityType := strings.TrimSpace(filter.EntityType); entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if entityID := strings.TrimSpace(filter.EntityID); entityID != "" {
		query = query.Where("entity_id = ?", entityID)
	}
	if actor := strings.TrimSpace(filter.Actor); actor != "" {
		query = query.Where("actor = ?", actor)
	}
	if severity := strings.TrimSpace(filter.Severity); severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if runID := strings.TrimSpace(filter.RunID); runID != "" {
		query = query.Where("run_id = ?", runID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.AuditEvent
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListByActionsSince 查询指定动作在给定时间之后的事件
func (r *GormAuditEventRepository) ListByActionsSince(actions []string, since time.Time) ([]models.AuditEvent, error) {
	if len(actions) == 0 {
		return nil, nil
	}
	var rows []models.AuditEvent
	err := r.db.Where("action IN ?", actions).
		Where("created_at >= ?", since).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetFirstAfter 查询实体在给定时间之后最早命中的事件
func (r *GormAuditEventRepository) GetFirstAfter(entityType, entityID string, actions []string, after time.Time) (*models.AuditEvent, error) {
	if len(actions) == 0 {
		return nil, nil
	}
	var event models.AuditEvent
	err := r.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Where("action IN ?", actions).
		Where("created_at >= ?", after).
		Order("created_at asc, id asc").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}
