package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/models"

	"gorm.io/gorm"
)

// CommissionRepository 佣金数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	Create(tracking *models.CommissionTracking) error
	GetByID(id uint) (*models.CommissionTracking, error)
	GetByReservationID(reservationID uint) (*models.CommissionTracking, error)
	List(filter CommissionListFilter) ([]models.CommissionTracking, int64, error)
	UpdateFields(id uint, updates map[string]interface{}) error

	CreateFinance(finance *models.CommissionFinance) error
	GetFinanceByCommissionID(commissionID uint) (*models.CommissionFinance, error)
	UpdateFinanceFields(commissionID uint, updates map[string]interface{}) error

	AppendHistory(history *models.CommissionStatusHistory) error
	ListHistory(commissionID uint) ([]models.CommissionStatusHistory, error)

	ListNegotiationExpired(now time.Time, limit int) ([]models.CommissionTracking, error)
	ListCollectableOverdue(now time.Time, limit int) ([]models.CommissionTracking, error)
}

// GormCommissionRepository GORM 佣金仓储
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建佣金主记录
func (r *GormCommissionRepository) Create(tracking *models.CommissionTracking) error {
	return r.db.Create(tracking).Error
}

// GetByID 按ID获取佣金主记录
func (r *GormCommissionRepository) GetByID(id uint) (*models.CommissionTracking, error) {
	if id == 0 {
		return nil, nil
	}
	var tracking models.CommissionTracking
	if err := r.db.Preload("Finance").First(&tracking, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tracking, nil
}

// GetByReservationID 按预约ID获取佣金主记录
func (r *GormCommissionRepository) GetByReservationID(reservationID uint) (*models.CommissionTracking, error) {
	if reservationID == 0 {
		return nil, nil
	}
	var tracking models.CommissionTracking
	if err := r.db.Where("reservation_id = ?", reservationID).First(&tracking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tracking, nil
}

// List 查询佣金列表
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.CommissionTracking, int64, error) {
	query := r.db.Model(&models.CommissionTracking{})
	if filter.BrokerID != 0 {
		query = query.Where("broker_id = ?", filter.BrokerID)
	}
	if filter.ProjectID != 0 {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if phase := strings.TrimSpace(filter.EntitlementPhase); phase != "" {
		query = query.Where("entitlement_phase = ?", phase)
	}
	if collectability := strings.TrimSpace(filter.Collectability); collectability != "" {
		query = query.Where("collectability = ?", collectability)
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

	var rows []models.CommissionTracking
	if err := query.Preload("Finance").Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateFields 更新佣金主记录字段
func (r *GormCommissionRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.CommissionTracking{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CreateFinance 创建财务分成记录
func (r *GormCommissionRepository) CreateFinance(finance *models.CommissionFinance) error {
	return r.db.Create(finance).Error
}

// GetFinanceByCommissionID 按佣金ID获取财务分成记录
func (r *GormCommissionRepository) GetFinanceByCommissionID(commissionID uint) (*models.CommissionFinance, error) {
	if commissionID == 0 {
		return nil, nil
	}
	var finance models.CommissionFinance
	if err := r.db.Where("commission_id = ?", commissionID).First(&finance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &finance, nil
}

// UpdateFinanceFields 更新财务分成记录字段
func (r *GormCommissionRepository) UpdateFinanceFields(commissionID uint, updates map[string]interface{}) error {
	if commissionID == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.CommissionFinance{}).
		Where("commission_id = ?", commissionID).
		Updates(updates).Error
}

// AppendHistory 追加状态历史
func (r *GormCommissionRepository) AppendHistory(history *models.CommissionStatusHistory) error {
	return r.db.Create(history).Error
}

// ListHistory 查询状态历史
func (r *GormCommissionRepository) ListHistory(commissionID uint) ([]models.CommissionStatusHistory, error) {
	if commissionID == 0 {
		return nil, nil
	}
	var rows []models.CommissionStatusHistory
	if err := r.db.Where("commission_id = ?", commissionID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListNegotiationExpired 查询谈判截止已过且仍处谈判阶段的佣金
func (r *GormCommissionRepository) ListNegotiationExpired(now time.Time, limit int) ([]models.CommissionTracking, error) {
	query := r.db.Model(&models.CommissionTracking{}).
		Where("entitlement_phase = ?", constants.EntitlementPhaseNegotiation).
		Where("negotiation_deadline IS NOT NULL AND negotiation_deadline <= ?", now).
		Where("termination_reason = ?", "").
		Order("negotiation_deadline asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.CommissionTracking
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListCollectableOverdue 查询平台收款截止已过的可回收佣金
func (r *GormCommissionRepository) ListCollectableOverdue(now time.Time, limit int) ([]models.CommissionTracking, error) {
	query := r.db.Model(&models.CommissionTracking{}).
		Where("collectability = ?", constants.CollectabilityCollectable).
		Where("platform_payment_deadline IS NOT NULL AND platform_payment_deadline <= ?", now).
		Order("platform_payment_deadline asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.CommissionTracking
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
