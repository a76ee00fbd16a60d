package repository

import (
	"errors"
	"strings"

	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/models"

	"gorm.io/gorm"
)

// InvestorRepository 投资人数据访问接口
type InvestorRepository interface {
	WithTx(tx *gorm.DB) InvestorRepository

	Create(investor *models.Investor) error
	GetByID(id uint) (*models.Investor, error)
	List(filter InvestorListFilter) ([]models.Investor, int64, error)
	ListActive() ([]models.Investor, error)
	UpdateFields(id uint, updates map[string]interface{}) error
}

// GormInvestorRepository GORM 投资人仓储
type GormInvestorRepository struct {
	db *gorm.DB
}

// NewInvestorRepository 创建投资人仓储
func NewInvestorRepository(db *gorm.DB) *GormInvestorRepository {
	return &GormInvestorRepository{db: db}
}

// WithTx 绑定事务
func (r *GormInvestorRepository) WithTx(tx *gorm.DB) InvestorRepository {
	if tx == nil {
		return r
	}
	return &GormInvestorRepository{db: tx}
}

// Create 创建投资人
func (r *GormInvestorRepository) Create(investor *models.Investor) error {
	return r.db.Create(investor).Error
}

// GetByID 按ID获取投资人
func (r *GormInvestorRepository) GetByID(id uint) (*models.Investor, error) {
	if id == 0 {
		return nil, nil
	}
	var investor models.Investor
	if err := r.db.First(&investor, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &investor, nil
}

// List 查询投资人列表
func (r *GormInvestorRepository) List(filter InvestorListFilter) ([]models.Investor, int64, error) {
	query := r.db.Model(&models.Investor{})
	if state := strings.TrimSpace(filter.State); state != "" {
		query = query.Where("state = ?", state)
	}
	if keyword := strings.TrimSpace(filter.Search); keyword != "" {
		like := "%" + keyword + "%"
		condition, argCount := buildKeywordLikeCondition(r.db, []string{"name"})
		if condition != "" {
			query = query.Where(condition, repeatLikeArgs(like, argCount)...)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Investor
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListActive 查询全部有效投资人
func (r *GormInvestorRepository) ListActive() ([]models.Investor, error) {
	var rows []models.Investor
	err := r.db.Where("state = ?", constants.InvestorStateActive).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateFields 更新投资人字段
func (r *GormInvestorRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Investor{}).
		Where("id = ?", id).
		Updates(updates).Error
}
