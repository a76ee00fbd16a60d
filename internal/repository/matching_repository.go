package repository

import (
	"errors"
	"strings"

	"github.com/tipari/platform/internal/models"

	"gorm.io/gorm"
)

// MatchingRepository 匹配结果数据访问接口
type MatchingRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) MatchingRepository

	Create(result *models.InvestorMatchingResult) error
	GetByPair(investorID, ticketID uint) (*models.InvestorMatchingResult, error)
	List(filter MatchListFilter) ([]models.InvestorMatchingResult, int64, error)
	ListActiveByInvestor(investorID uint) ([]models.InvestorMatchingResult, error)
	ListActiveByTicket(ticketID uint) ([]models.InvestorMatchingResult, error)
	ListActiveAfter(afterID uint, limit int) ([]models.InvestorMatchingResult, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	UpdateScore(id uint, updates map[string]interface{}) error
}

// GormMatchingRepository GORM 匹配结果仓储
type GormMatchingRepository struct {
	db *gorm.DB
}

// NewMatchingRepository 创建匹配结果仓储
func NewMatchingRepository(db *gorm.DB) *GormMatchingRepository {
	return &GormMatchingRepository{db: db}
}

// WithTx 绑定事务
func (r *GormMatchingRepository) WithTx(tx *gorm.DB) MatchingRepository {
	if tx == nil {
		return r
	}
	return &GormMatchingRepository{db: tx}
}

// Transaction 执行事务
func (r *GormMatchingRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建匹配结果
func (r *GormMatchingRepository) Create(result *models.InvestorMatchingResult) error {
	return r.db.Create(result).Error
}

// GetByPair 按投资人与票据组合获取匹配结果
func (r *GormMatchingRepository) GetByPair(investorID, ticketID uint) (*models.InvestorMatchingResult, error) {
	if investorID == 0 || ticketID == 0 {
		return nil, nil
	}
	var result models.InvestorMatchingResult
	err := r.db.Where("investor_id = ? AND ticket_id = ?", investorID, ticketID).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// List 查询匹配结果列表
func (r *GormMatchingRepository) List(filter MatchListFilter) ([]models.InvestorMatchingResult, int64, error) {
	query := r.db.Model(&models.InvestorMatchingResult{})
	if filter.InvestorID != 0 {
		query = query.Where("investor_id = ?", filter.InvestorID)
	}
	if filter.TicketID != 0 {
		query = query.Where("ticket_id = ?", filter.TicketID)
	}
	if quality := strings.TrimSpace(filter.Quality); quality != "" {
		query = query.Where("match_quality = ?", quality)
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.InvestorMatchingResult
	if err := query.Order("match_score desc, id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListActiveByInvestor 查询投资人的有效匹配
func (r *GormMatchingRepository) ListActiveByInvestor(investorID uint) ([]models.InvestorMatchingResult, error) {
	if investorID == 0 {
		return nil, nil
	}
	var rows []models.InvestorMatchingResult
	err := r.db.Where("investor_id = ? AND is_active = ?", investorID, true).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveByTicket 查询票据的有效匹配
func (r *GormMatchingRepository) ListActiveByTicket(ticketID uint) ([]models.InvestorMatchingResult, error) {
	if ticketID == 0 {
		return nil, nil
	}
	var rows []models.InvestorMatchingResult
	err := r.db.Where("ticket_id = ? AND is_active = ?", ticketID, true).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveAfter 按主键游标分批查询有效匹配。
// 游标不受批内失效行影响，巡检过程中不会漏行。
func (r *GormMatchingRepository) ListActiveAfter(afterID uint, limit int) ([]models.InvestorMatchingResult, error) {
	query := r.db.Where("is_active = ?", true).Where("id > ?", afterID).Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.InvestorMatchingResult
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateFields 更新匹配结果字段
func (r *GormMatchingRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.InvestorMatchingResult{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateScore 更新得分并原子递增重算次数
func (r *GormMatchingRepository) UpdateScore(id uint, updates map[string]interface{}) error {
	if id == 0 {
		return nil
	}
	merged := map[string]interface{}{
		"recalculation_count": gorm.Expr("recalculation_count + 1"),
	}
	for k, v := range updates {
		merged[k] = v
	}
	return r.db.Model(&models.InvestorMatchingResult{}).
		Where("id = ?", id).
		Updates(merged).Error
}
