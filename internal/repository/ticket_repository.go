package repository

import (
	"errors"
	"strings"

	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/models"

	"gorm.io/gorm"
)

// TicketRepository 票据数据访问接口
type TicketRepository interface {
	WithTx(tx *gorm.DB) TicketRepository

	Create(ticket *models.Ticket) error
	GetByID(id uint) (*models.Ticket, error)
	GetByIDWithProject(id uint) (*models.Ticket, error)
	List(filter TicketListFilter) ([]models.Ticket, int64, error)
	ListAvailableOfPublishedProjects() ([]models.Ticket, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	OccupySlot(id uint, capacity int) (bool, error)
	ReleaseSlot(id uint) error
}

// GormTicketRepository GORM 票据仓储
type GormTicketRepository struct {
	db *gorm.DB
}

// NewTicketRepository 创建票据仓储
func NewTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTicketRepository) WithTx(tx *gorm.DB) TicketRepository {
	if tx == nil {
		return r
	}
	return &GormTicketRepository{db: tx}
}

// Create 创建票据
func (r *GormTicketRepository) Create(ticket *models.Ticket) error {
	return r.db.Create(ticket).Error
}

// GetByID 按ID获取票据
func (r *GormTicketRepository) GetByID(id uint) (*models.Ticket, error) {
	if id == 0 {
		return nil, nil
	}
	var ticket models.Ticket
	if err := r.db.First(&ticket, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

// GetByIDWithProject 按ID获取票据并预载项目
func (r *GormTicketRepository) GetByIDWithProject(id uint) (*models.Ticket, error) {
	if id == 0 {
		return nil, nil
	}
	var ticket models.Ticket
	if err := r.db.Preload("Project").First(&ticket, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

// List 查询票据列表
func (r *GormTicketRepository) List(filter TicketListFilter) ([]models.Ticket, int64, error) {
	query := r.db.Model(&models.Ticket{})
	if filter.ProjectID != 0 {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Ticket
	if err := query.Preload("Project").Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListAvailableOfPublishedProjects 查询已发布项目下可预约的票据
func (r *GormTicketRepository) ListAvailableOfPublishedProjects() ([]models.Ticket, error) {
	var rows []models.Ticket
	err := r.db.Model(&models.Ticket{}).
		Joins("JOIN projects ON projects.id = tickets.project_id").
		Where("tickets.status = ?", constants.TicketStatusAvailable).
		Where("projects.status = ?", constants.ProjectStatusPublished).
		Where("projects.deleted_at IS NULL").
		Preload("Project").
		Order("tickets.id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateFields 更新票据字段
func (r *GormTicketRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Ticket{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// OccupySlot 原子占用一个预约槽位，超出容量时返回 false
func (r *GormTicketRepository) OccupySlot(id uint, capacity int) (bool, error) {
	if id == 0 || capacity <= 0 {
		return false, nil
	}
	result := r.db.Model(&models.Ticket{}).
		Where("id = ? AND active_reservations < ?", id, capacity).
		Update("active_reservations", gorm.Expr("active_reservations + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseSlot 原子释放一个预约槽位
func (r *GormTicketRepository) ReleaseSlot(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Ticket{}).
		Where("id = ? AND active_reservations > 0", id).
		Update("active_reservations", gorm.Expr("active_reservations - 1")).Error
}
