package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReservationRepository 预约数据访问接口
type ReservationRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ReservationRepository

	Create(reservation *models.Reservation) error
	GetByID(id uint) (*models.Reservation, error)
	GetByIDForUpdate(id uint) (*models.Reservation, error)
	GetByNo(reservationNo string) (*models.Reservation, error)
	List(filter ReservationListFilter) ([]models.Reservation, int64, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	CountActiveByTicket(ticketID uint) (int64, error)
	ListExpired(states []string, before time.Time, limit int) ([]models.Reservation, error)
}

// GormReservationRepository GORM 预约仓储
type GormReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预约仓储
func NewReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReservationRepository) WithTx(tx *gorm.DB) ReservationRepository {
	if tx == nil {
		return r
	}
	return &GormReservationRepository{db: tx}
}

// Transaction 执行事务
func (r *GormReservationRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建预约
func (r *GormReservationRepository) Create(reservation *models.Reservation) error {
	return r.db.Create(reservation).Error
}

// GetByID 按ID获取预约
func (r *GormReservationRepository) GetByID(id uint) (*models.Reservation, error) {
	if id == 0 {
		return nil, nil
	}
	var reservation models.Reservation
	if err := r.db.Preload("Ticket").Preload("Broker").First(&reservation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

// GetByIDForUpdate 按ID获取预约并加行锁
func (r *GormReservationRepository) GetByIDForUpdate(id uint) (*models.Reservation, error) {
	if id == 0 {
		return nil, nil
	}
	var reservation models.Reservation
	query := r.db
	// sqlite 单写锁下无需也不支持 FOR UPDATE
	if dbDialectName(r.db) != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.First(&reservation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

// GetByNo 按预约编号获取预约
func (r *GormReservationRepository) GetByNo(reservationNo string) (*models.Reservation, error) {
	normalized := strings.TrimSpace(reservationNo)
	if normalized == "" {
		return nil, nil
	}
	var reservation models.Reservation
	if err := r.db.Where("reservation_no = ?", normalized).First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

// List 查询预约列表
func (r *GormReservationRepository) List(filter ReservationListFilter) ([]models.Reservation, int64, error) {
	query := r.db.Model(&models.Reservation{})
	if filter.TicketID != 0 {
		query = query.Where("ticket_id = ?", filter.TicketID)
	}
	if filter.BrokerID != 0 {
		query = query.Where("broker_id = ?", filter.BrokerID)
	}
	if state := strings.TrimSpace(filter.State); state != "" {
		query = query.Where("state = ?", state)
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

	var rows []models.Reservation
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateFields 更新预约字段
func (r *GormReservationRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Reservation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CountActiveByTicket 统计票据上占用槽位的预约数量
func (r *GormReservationRepository) CountActiveByTicket(ticketID uint) (int64, error) {
	if ticketID == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.Reservation{}).
		Where("ticket_id = ?", ticketID).
		Where("state NOT IN ?", []string{
			constants.ReservationStateRejected,
			constants.ReservationStateExpired,
		}).
		Count(&count).Error
	return count, err
}

// ListExpired 查询指定状态集合中已过期的预约
func (r *GormReservationRepository) ListExpired(states []string, before time.Time, limit int) ([]models.Reservation, error) {
	if len(states) == 0 {
		return nil, nil
	}
	query := r.db.Model(&models.Reservation{}).
		Where("state IN ?", states).
		Where("expires_at <= ?", before).
		Order("expires_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Reservation
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
