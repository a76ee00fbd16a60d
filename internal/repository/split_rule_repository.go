package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/models"

	"gorm.io/gorm"
)

// SplitRuleRepository 分成规则数据访问接口
type SplitRuleRepository interface {
	WithTx(tx *gorm.DB) SplitRuleRepository

	Create(rule *models.CommissionSplitRule) error
	GetByID(id uint) (*models.CommissionSplitRule, error)
	GetActiveProjectOverride(projectID uint) (*models.CommissionSplitRule, error)
	GetActiveGlobalDefault() (*models.CommissionSplitRule, error)
	List(filter SplitRuleListFilter) ([]models.CommissionSplitRule, int64, error)
	Deactivate(id uint, updatedAt time.Time) error
}

// GormSplitRuleRepository GORM 分成规则仓储
type GormSplitRuleRepository struct {
	db *gorm.DB
}

// NewSplitRuleRepository 创建分成规则仓储
func NewSplitRuleRepository(db *gorm.DB) *GormSplitRuleRepository {
	return &GormSplitRuleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSplitRuleRepository) WithTx(tx *gorm.DB) SplitRuleRepository {
	if tx == nil {
		return r
	}
	return &GormSplitRuleRepository{db: tx}
}

// Create 创建分成规则
func (r *GormSplitRuleRepository) Create(rule *models.CommissionSplitRule) error {
	return r.db.Create(rule).Error
}

// GetByID 按ID获取分成规则
func (r *GormSplitRuleRepository) GetByID(id uint) (*models.CommissionSplitRule, error) {
	if id == 0 {
		return nil, nil
	}
	var rule models.CommissionSplitRule
	if err := r.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// GetActiveProjectOverride 获取项目级生效分成规则
func (r *GormSplitRuleRepository) GetActiveProjectOverride(projectID uint) (*models.CommissionSplitRule, error) {
	if projectID == 0 {
		return nil, nil
	}
	var rule models.CommissionSplitRule
	err := r.db.Where("scope = ?", constants.SplitRuleScopeProjectOverride).
		Where("project_id = ?", projectID).
		Where("is_active = ?", true).
		Order("id desc").
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// GetActiveGlobalDefault 获取全局生效分成规则
func (r *GormSplitRuleRepository) GetActiveGlobalDefault() (*models.CommissionSplitRule, error) {
	var rule models.CommissionSplitRule
	err := r.db.Where("scope = ?", constants.SplitRuleScopeGlobalDefault).
		Where("is_active = ?", true).
		Order("id desc").
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// List 查询分成规则列表
func (r *GormSplitRuleRepository) List(filter SplitRuleListFilter) ([]models.CommissionSplitRule, int64, error) {
	query := r.db.Model(&models.CommissionSplitRule{})
	if scope := strings.TrimSpace(filter.Scope); scope != "" {
		query = query.Where("scope = ?", scope)
	}
	if filter.ProjectID != 0 {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.CommissionSplitRule
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Deactivate 停用分成规则
func (r *GormSplitRuleRepository) Deactivate(id uint, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.CommissionSplitRule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": updatedAt,
		}).Error
}
