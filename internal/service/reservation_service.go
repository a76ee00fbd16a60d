package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/logger"
	"github.com/tipari/platform/internal/models"
	"github.com/tipari/platform/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const expirySweepBatchSize = 500

// 预约状态机：六步推进，任何激活前状态都可被拒绝。
// active、rejected、expired 为终态。
var allowedTransitions = map[string]map[string]bool{
	constants.ReservationStatePendingPlatform: {
		constants.ReservationStatePlatformApproved: true,
		constants.ReservationStateRejected:         true,
	},
	constants.ReservationStatePlatformApproved: {
		constants.ReservationStateInvestorSigned: true,
		constants.ReservationStateRejected:       true,
	},
	constants.ReservationStateInvestorSigned: {
		constants.ReservationStateWaitingDeveloperDecision: true,
		constants.ReservationStateRejected:                 true,
	},
	constants.ReservationStateWaitingDeveloperDecision: {
		constants.ReservationStateDeveloperConfirmed: true,
		constants.ReservationStateRejected:           true,
	},
	constants.ReservationStateDeveloperConfirmed: {
		constants.ReservationStateActive:   true,
		constants.ReservationStateRejected: true,
	},
}

var transitionAuditActions = map[string]string{
	constants.ReservationStatePlatformApproved:         constants.AuditActionReservationApproved,
	constants.ReservationStateInvestorSigned:           constants.AuditActionInvestorSigned,
	constants.ReservationStateWaitingDeveloperDecision: constants.AuditActionSentToDeveloper,
	constants.ReservationStateDeveloperConfirmed:       constants.AuditActionDeveloperConfirmed,
	constants.ReservationStateActive:                   constants.AuditActionReservationActivated,
	constants.ReservationStateRejected:                 constants.AuditActionReservationRejected,
}

// 可被过期巡检回收的激活前状态
var expirableStates = []string{
	constants.ReservationStatePendingPlatform,
	constants.ReservationStatePlatformApproved,
	constants.ReservationStateInvestorSigned,
	constants.ReservationStateWaitingDeveloperDecision,
	constants.ReservationStateDeveloperConfirmed,
}

func isTransitionAllowed(current, target string) bool {
	if current == target {
		return true
	}
	nexts, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

// ReservationService 预约生命周期服务
type ReservationService struct {
	repo              repository.ReservationRepository
	ticketRepo        repository.TicketRepository
	projectRepo       repository.ProjectRepository
	brokerRepo        repository.BrokerRepository
	commissionService *CommissionService
	auditService      *AuditService
	matchingService   *MatchingService
	policy            DeadlinePolicy
}

// NewReservationService 创建预约生命周期服务
func NewReservationService(
	repo repository.ReservationRepository,
	ticketRepo repository.TicketRepository,
	projectRepo repository.ProjectRepository,
	brokerRepo repository.BrokerRepository,
	commissionService *CommissionService,
	auditService *AuditService,
	matchingService *MatchingService,
	policy DeadlinePolicy,
) *ReservationService {
	return &ReservationService{
		repo:              repo,
		ticketRepo:        ticketRepo,
		projectRepo:       projectRepo,
		brokerRepo:        brokerRepo,
		commissionService: commissionService,
		auditService:      auditService,
		matchingService:   matchingService,
		policy:            policy,
	}
}

// CreateReservationInput 创建预约输入
type CreateReservationInput struct {
	TicketID uint
	BrokerID uint
	Actor    string
}

// ExpirySweepStats 预约过期巡检统计
type ExpirySweepStats struct {
	Expired int
	Failed  int
}

// CreateReservation 创建预约并占用票据名额
func (s *ReservationService) CreateReservation(input CreateReservationInput) (*models.Reservation, error) {
	broker, err := s.brokerRepo.GetByID(input.BrokerID)
	if err != nil {
		return nil, err
	}
	if broker == nil {
		return nil, ErrBrokerNotFound
	}
	ticket, err := s.ticketRepo.GetByIDWithProject(input.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	if ticket.Status != constants.TicketStatusAvailable || ticket.Project.Status != constants.ProjectStatusPublished {
		return nil, ErrTicketNotAvailable
	}

	now := time.Now()
	reservation := &models.Reservation{
		ReservationNo: generateReservationNo(now),
		TicketID:      ticket.ID,
		BrokerID:      broker.ID,
		State:         constants.ReservationStatePendingPlatform,
		ExpiresAt:     s.policy.ReservationExpiresAt(now),
	}

	err = s.repo.Transaction(func(tx *gorm.DB) error {
		occupied, err := s.ticketRepo.WithTx(tx).OccupySlot(ticket.ID, s.policy.MaxReservationsPerTicket)
		if err != nil {
			return err
		}
		if !occupied {
			return ErrTicketSlotsExhausted
		}
		if err := s.repo.WithTx(tx).Create(reservation); err != nil {
			return err
		}
		return s.auditService.RecordTx(tx, AuditRecordInput{
			Action:     constants.AuditActionReservationCreated,
			EntityType: constants.EntityTypeReservation,
			EntityID:   strconv.FormatUint(uint64(reservation.ID), 10),
			Actor:      input.Actor,
			NewState:   reservation.State,
			Detail: models.JSON{
				"reservation_no": reservation.ReservationNo,
				"ticket_id":      ticket.ID,
				"broker_id":      broker.ID,
				"expires_at":     reservation.ExpiresAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// GetByID 获取预约详情
func (s *ReservationService) GetByID(id uint) (*models.Reservation, error) {
	reservation, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, ErrReservationNotFound
	}
	return reservation, nil
}

// ListForAdmin 管理端查询预约列表
func (s *ReservationService) ListForAdmin(filter repository.ReservationListFilter) ([]models.Reservation, int64, error) {
	return s.repo.List(filter)
}

// Transition 推进预约状态。
//
// 状态更新、票据占用调整、审计以及激活时的佣金创建在同一事务内完成；
// 重放相同的目标状态直接返回成功。
func (s *ReservationService) Transition(id uint, target, actor string, now time.Time) (*models.Reservation, error) {
	var result *models.Reservation
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		reservation, err := repoTx.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if reservation == nil {
			return ErrReservationNotFound
		}
		if reservation.State == target {
			result = reservation
			return nil
		}
		if strings.TrimSpace(reservation.TerminationReason) != "" {
			return ErrReservationTerminated
		}
		if !isTransitionAllowed(reservation.State, target) {
			return ErrReservationStateInvalid
		}

		updates := map[string]interface{}{"state": target}
		detail := models.JSON{"reservation_no": reservation.ReservationNo}

		switch target {
		case constants.ReservationStateRejected:
			updates["termination_reason"] = constants.TerminationReasonReservationReject
			if err := s.ticketRepo.WithTx(tx).ReleaseSlot(reservation.TicketID); err != nil {
				return err
			}
		case constants.ReservationStateActive:
			updates["activated_at"] = now
			if err := s.activate(tx, reservation, now, detail); err != nil {
				return err
			}
		}

		if err := repoTx.UpdateFields(reservation.ID, updates); err != nil {
			return err
		}
		if err := s.auditService.RecordTx(tx, AuditRecordInput{
			Action:     transitionAuditActions[target],
			EntityType: constants.EntityTypeReservation,
			EntityID:   strconv.FormatUint(uint64(reservation.ID), 10),
			Actor:      actor,
			OldState:   reservation.State,
			NewState:   target,
			Detail:     detail,
		}); err != nil {
			return err
		}

		reservation.State = target
		result = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 激活让票据脱离 available，匹配结果需要联动失效
	if result != nil && result.State == constants.ReservationStateActive {
		s.notifyTicketChanged(result.TicketID)
	}
	return result, nil
}

// activate 处理激活附带动作：票据转为已预订、项目源经纪人一次性绑定、创建佣金。
func (s *ReservationService) activate(tx *gorm.DB, reservation *models.Reservation, now time.Time, detail models.JSON) error {
	ticket, err := s.ticketRepo.WithTx(tx).GetByIDWithProject(reservation.TicketID)
	if err != nil {
		return err
	}
	if ticket == nil {
		return ErrTicketNotFound
	}
	if err := s.ticketRepo.WithTx(tx).UpdateFields(ticket.ID, map[string]interface{}{
		"status": constants.TicketStatusReserved,
	}); err != nil {
		return err
	}

	assigned, err := s.projectRepo.WithTx(tx).AssignOriginBroker(ticket.ProjectID, reservation.BrokerID)
	if err != nil {
		return err
	}
	if assigned {
		detail["origin_broker_id"] = reservation.BrokerID
		if err := s.auditService.RecordTx(tx, AuditRecordInput{
			Action:     constants.AuditActionProjectOriginAssign,
			EntityType: constants.EntityTypeProject,
			EntityID:   strconv.FormatUint(uint64(ticket.ProjectID), 10),
			Actor:      constants.ActorSystem,
			Detail: models.JSON{
				"origin_broker_id": reservation.BrokerID,
				"reservation_id":   reservation.ID,
			},
		}); err != nil {
			return err
		}
	}

	tracking, err := s.commissionService.CreateForReservationTx(tx, reservation, ticket, now)
	if err != nil {
		return err
	}
	detail["commission_id"] = tracking.ID
	return nil
}

// ExpireDueReservations 过期巡检：回收所有超期未激活的预约。
//
// 整轮使用同一个 now，逐条独立事务，重复执行无副作用。
func (s *ReservationService) ExpireDueReservations(now time.Time, runID string) (ExpirySweepStats, error) {
	stats := ExpirySweepStats{}
	due, err := s.repo.ListExpired(expirableStates, now, expirySweepBatchSize)
	if err != nil {
		return stats, err
	}
	for i := range due {
		item := due[i]
		if err := s.expireOne(&item, now, runID); err != nil {
			stats.Failed++
			logger.Warnw("reservation_expire_failed",
				"reservation_id", item.ID,
				"run_id", runID,
				"error", err,
			)
			continue
		}
		stats.Expired++
		// 经纪人侧仅通知，通知不影响巡检结果
		logger.Warnw("broker_reservation_expired_notification",
			"reservation_id", item.ID,
			"broker_id", item.BrokerID,
			"ticket_id", item.TicketID,
			"run_id", runID,
		)
	}
	logger.Infow("reservation_expiry_sweep_completed",
		"run_id", runID,
		"expired", stats.Expired,
		"failed", stats.Failed,
	)
	return stats, nil
}

func (s *ReservationService) expireOne(reservation *models.Reservation, now time.Time, runID string) error {
	if strings.TrimSpace(reservation.TerminationReason) != "" {
		return nil
	}
	return s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		current, err := repoTx.GetByIDForUpdate(reservation.ID)
		if err != nil {
			return err
		}
		if current == nil || current.State == constants.ReservationStateExpired {
			return nil
		}
		if err := repoTx.UpdateFields(current.ID, map[string]interface{}{
			"state":              constants.ReservationStateExpired,
			"termination_reason": constants.TerminationReasonReservationExpired,
		}); err != nil {
			return err
		}
		if err := s.ticketRepo.WithTx(tx).ReleaseSlot(current.TicketID); err != nil {
			return err
		}
		return s.auditService.RecordTx(tx, AuditRecordInput{
			Action:     constants.AuditActionReservationExpired,
			EntityType: constants.EntityTypeReservation,
			EntityID:   strconv.FormatUint(uint64(current.ID), 10),
			OldState:   current.State,
			NewState:   constants.ReservationStateExpired,
			Reason:     constants.TerminationReasonReservationExpired,
			RunID:      runID,
			Detail: models.JSON{
				"expires_at": current.ExpiresAt,
				"swept_at":   now,
			},
		})
	})
}

// 走匹配服务的统一触发入口：队列可用时异步，禁用时同步刷新
func (s *ReservationService) notifyTicketChanged(ticketID uint) {
	if s.matchingService == nil {
		return
	}
	if err := s.matchingService.TriggerTicketUpdate(ticketID); err != nil {
		logger.Warnw("match_ticket_trigger_failed", "ticket_id", ticketID, "error", err)
	}
}

func generateReservationNo(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("RSV%s%s", now.Format("20060102150405"), strings.ToUpper(suffix))
}
