package service

import (
	"time"

	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/models"
	"github.com/tipari/platform/internal/repository"
)

// IncidentService 系统事故服务
type IncidentService struct {
	repo repository.IncidentRepository
}

// NewIncidentService 创建系统事故服务
func NewIncidentService(repo repository.IncidentRepository) *IncidentService {
	return &IncidentService{repo: repo}
}

// Raise 开具事故
func (s *IncidentService) Raise(source, severity, title string, detail models.JSON) error {
	if s == nil || s.repo == nil {
		return nil
	}
	return s.repo.Create(&models.SystemIncident{
		Source:     source,
		Severity:   severity,
		Title:      title,
		DetailJSON: detail,
		Status:     constants.IncidentStatusOpen,
		CreatedAt:  time.Now(),
	})
}

// Resolve 标记事故已处理
func (s *IncidentService) Resolve(id uint) error {
	if s == nil || s.repo == nil || id == 0 {
		return nil
	}
	incident, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if incident == nil {
		return ErrNotFound
	}
	return s.repo.Resolve(id, time.Now())
}

// ListForAdmin 管理端查询事故列表
func (s *IncidentService) ListForAdmin(filter repository.IncidentListFilter) ([]models.SystemIncident, int64, error) {
	if s == nil || s.repo == nil {
		return []models.SystemIncident{}, 0, nil
	}
	return s.repo.List(filter)
}
