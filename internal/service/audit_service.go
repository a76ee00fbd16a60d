package service

import (
	"strings"
	"time"

	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/logger"
	"github.com/tipari/platform/internal/models"
	"github.com/tipari/platform/internal/repository"

	"gorm.io/gorm"
)

// AuditRecordInput 审计事件输入
type AuditRecordInput struct {
	Action     string
	EntityType string
	EntityID   string
	Actor      string
	OldState   string
	NewState   string
	Reason     string
	Severity   string
	RunID      string
	Detail     models.JSON
}

// AuditService 审计事件服务
//
// 审计写入失败不允许无声丢失：事务内失败会让事务回滚，
// 事务外失败会记录错误日志并开具 audit_sink 事故。
type AuditService struct {
	repo         repository.AuditEventRepository
	incidentRepo repository.IncidentRepository
}

// NewAuditService 创建审计事件服务
func NewAuditService(repo repository.AuditEventRepository, incidentRepo repository.IncidentRepository) *AuditService {
	return &AuditService{repo: repo, incidentRepo: incidentRepo}
}

// Record 写入审计事件，失败时开具事故
func (s *AuditService) Record(input AuditRecordInput) error {
	if s == nil || s.repo == nil {
		return nil
	}
	event := buildAuditEvent(input)
	if event == nil {
		return nil
	}
	if err := s.repo.Create(event); err != nil {
		logger.Errorw("audit_event_write_failed",
			"action", event.Action,
			"entity_type", event.EntityType,
			"entity_id", event.EntityID,
			"error", err,
		)
		s.openAuditSinkIncident(event, err)
		return err
	}
	return nil
}

// RecordTx 在调用方事务内写入审计事件，失败即令事务回滚
func (s *AuditService) RecordTx(tx *gorm.DB, input AuditRecordInput) error {
	if s == nil || s.repo == nil || tx == nil {
		return nil
	}
	event := buildAuditEvent(input)
	if event == nil {
		return nil
	}
	return s.repo.WithTx(tx).Create(event)
}

// ListForAdmin 管理端查询审计事件
func (s *AuditService) ListForAdmin(filter repository.AuditEventListFilter) ([]models.AuditEvent, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuditEvent{}, 0, nil
	}
	return s.repo.List(filter)
}

func (s *AuditService) openAuditSinkIncident(event *models.AuditEvent, cause error) {
	if s.incidentRepo == nil {
		return
	}
	incident := &models.SystemIncident{
		Source:   constants.IncidentSourceAuditSink,
		Severity: constants.AuditSeverityCritical,
		Title:    "audit event write failed",
		DetailJSON: models.JSON{
			"action":      event.Action,
			"entity_type": event.EntityType,
			"entity_id":   event.EntityID,
			"error":       cause.Error(),
		},
		Status:    constants.IncidentStatusOpen,
		CreatedAt: time.Now(),
	}
	if err := s.incidentRepo.Create(incident); err != nil {
		logger.Errorw("audit_sink_incident_write_failed", "error", err)
	}
}

func buildAuditEvent(input AuditRecordInput) *models.AuditEvent {
	action := strings.TrimSpace(input.Action)
	if action == "" {
		return nil
	}
	actor := strings.TrimSpace(input.Actor)
	if actor == "" {
		actor = constants.ActorSystem
	}
	severity := strings.TrimSpace(input.Severity)
	if severity == "" {
		severity = constants.AuditSeverityInfo
	}
	return &models.AuditEvent{
		Action:     action,
		EntityType: strings.TrimSpace(input.EntityType),
		EntityID:   strings.TrimSpace(input.EntityID),
		Actor:      actor,
		OldState:   strings.TrimSpace(input.OldState),
		NewState:   strings.TrimSpace(input.NewState),
		Reason:     strings.TrimSpace(input.Reason),
		Severity:   severity,
		RunID:      strings.TrimSpace(input.RunID),
		DetailJSON: input.Detail,
		CreatedAt:  time.Now(),
	}
}
