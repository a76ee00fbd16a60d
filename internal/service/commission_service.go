package service

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tipari/platform/internal/cache"
	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/logger"
	"github.com/tipari/platform/internal/models"
	"github.com/tipari/platform/internal/repository"

	"gorm.io/gorm"
)

const (
	splitRuleGlobalDefaultCacheKey = "split_rule:global_default"
	splitRuleCacheTTL              = 5 * time.Minute
	minWriteOffReasonLength        = 50
	deadlineSweepBatchSize         = 500
)

// 可回收状态只进不退：任何不在表内的边都会被拒绝。
var collectabilityTransitions = map[string]map[string]bool{
	constants.CollectabilityNotCollectable: {
		constants.CollectabilityCollectable: true,
	},
	constants.CollectabilityCollectable: {
		constants.CollectabilityInCollection: true,
	},
	constants.CollectabilityInCollection: {
		constants.CollectabilityWrittenOff: true,
	},
}

func isCollectabilityTransitionAllowed(current, target string) bool {
	nexts, ok := collectabilityTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

// CommissionService 佣金生命周期服务
type CommissionService struct {
	repo          repository.CommissionRepository
	splitRuleRepo repository.SplitRuleRepository
	auditService  *AuditService
	policy        DeadlinePolicy
}

// NewCommissionService 创建佣金生命周期服务
func NewCommissionService(
	repo repository.CommissionRepository,
	splitRuleRepo repository.SplitRuleRepository,
	auditService *AuditService,
	policy DeadlinePolicy,
) *CommissionService {
	return &CommissionService{
		repo:          repo,
		splitRuleRepo: splitRuleRepo,
		auditService:  auditService,
		policy:        policy,
	}
}

// DeadlineSweepStats 截止时限巡检统计
type DeadlineSweepStats struct {
	NegotiationExpired int
	MovedToCollection  int
	Failed             int
}

// CreateForReservationTx 在预约激活事务内创建佣金记录。
//
// 这是佣金唯一的创建入口。reservation_id 唯一索引保证恰好创建一次：
// 激活事件重放时命中唯一冲突，直接返回已存在的记录。
func (s *CommissionService) CreateForReservationTx(tx *gorm.DB, reservation *models.Reservation, ticket *models.Ticket, now time.Time) (*models.CommissionTracking, error) {
	if s == nil || s.repo == nil || reservation == nil || ticket == nil {
		return nil, ErrCommissionNotFound
	}
	repoTx := s.repo.WithTx(tx)

	amount, err := CalculateCommissionAmount(ticket.MinInvestmentAmount.Decimal, ticket.CommissionRatePercent)
	if err != nil {
		return nil, err
	}
	negotiationDeadline := s.policy.NegotiationDeadline(now)

	tracking := &models.CommissionTracking{
		ReservationID:         reservation.ID,
		TicketID:              ticket.ID,
		ProjectID:             ticket.ProjectID,
		BrokerID:              reservation.BrokerID,
		Status:                constants.CommissionStatusPending,
		EntitlementPhase:      constants.EntitlementPhaseNegotiation,
		Collectability:        constants.CollectabilityNotCollectable,
		CommissionRatePercent: ticket.CommissionRatePercent,
		CommissionAmount:      models.NewMoneyFromDecimal(amount),
		NegotiationDeadline:   &negotiationDeadline,
		WaitingOn:             constants.WaitingOnDeveloper,
	}
	if err := repoTx.Create(tracking); err != nil {
		if isUniqueViolation(err) {
			existing, getErr := repoTx.GetByReservationID(reservation.ID)
			if getErr != nil {
				return nil, getErr
			}
			if existing != nil {
				logger.Debugw("commission_create_replayed",
					"reservation_id", reservation.ID,
					"commission_id", existing.ID,
				)
				return existing, nil
			}
		}
		return nil, err
	}

	finance := &models.CommissionFinance{
		CommissionID:        tracking.ID,
		SplitStatus:         constants.SplitStatusPending,
		ReservationBrokerID: reservation.BrokerID,
	}
	if err := repoTx.CreateFinance(finance); err != nil {
		return nil, err
	}

	if err := repoTx.AppendHistory(&models.CommissionStatusHistory{
		CommissionID:     tracking.ID,
		Status:           tracking.Status,
		EntitlementPhase: tracking.EntitlementPhase,
		Collectability:   tracking.Collectability,
		ChangedBy:        constants.ActorSystem,
		Note:             "created on reservation activation",
	}); err != nil {
		return nil, err
	}

	if err := s.auditService.RecordTx(tx, AuditRecordInput{
		Action:     constants.AuditActionCommissionCreated,
		EntityType: constants.EntityTypeCommission,
		EntityID:   strconv.FormatUint(uint64(tracking.ID), 10),
		NewState:   tracking.Status,
		Detail: models.JSON{
			"reservation_id":      reservation.ID,
			"ticket_id":           ticket.ID,
			"commission_amount":   tracking.CommissionAmount.String(),
			"rate_percent":        tracking.CommissionRatePercent,
			"negotiation_deadline": negotiationDeadline,
		},
	}); err != nil {
		return nil, err
	}
	return tracking, nil
}

// GetByID 获取佣金详情
func (s *CommissionService) GetByID(id uint) (*models.CommissionTracking, error) {
	tracking, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if tracking == nil {
		return nil, ErrCommissionNotFound
	}
	return tracking, nil
}

// ListForAdmin 管理端查询佣金列表
func (s *CommissionService) ListForAdmin(filter repository.CommissionListFilter) ([]models.CommissionTracking, int64, error) {
	return s.repo.List(filter)
}

// ListHistory 查询佣金状态历史
func (s *CommissionService) ListHistory(commissionID uint) ([]models.CommissionStatusHistory, error) {
	return s.repo.ListHistory(commissionID)
}

// CalculateSplit 计算佣金分成并落库
func (s *CommissionService) CalculateSplit(commissionID uint, actor string) (*models.CommissionFinance, error) {
	tracking, err := s.GetByID(commissionID)
	if err != nil {
		return nil, err
	}
	finance, err := s.repo.GetFinanceByCommissionID(commissionID)
	if err != nil {
		return nil, err
	}
	if finance == nil {
		return nil, ErrCommissionNotFound
	}
	if finance.SplitStatus == constants.SplitStatusLocked {
		return nil, ErrSplitLocked
	}

	rule, err := s.resolveSplitRule(tracking.ProjectID)
	if err != nil {
		return nil, err
	}
	percents := SplitPercents{
		Platform:          rule.PlatformFeePercent,
		OriginBroker:      rule.OriginBrokerPercent,
		ReservationBroker: rule.ReservationBrokerPercent,
	}
	amounts, err := CalculateSplitAmounts(tracking.CommissionAmount.Decimal, percents)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"split_status":               constants.SplitStatusCalculated,
		"platform_fee_percent":       percents.Platform,
		"origin_broker_percent":      percents.OriginBroker,
		"reservation_broker_percent": percents.ReservationBroker,
		"platform_fee_amount":        models.NewMoneyFromDecimal(amounts.Platform),
		"origin_broker_amount":       models.NewMoneyFromDecimal(amounts.OriginBroker),
		"reservation_broker_amount":  models.NewMoneyFromDecimal(amounts.ReservationBroker),
	}
	if rule.ID != 0 {
		updates["split_rule_id"] = rule.ID
	}

	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if err := repoTx.UpdateFinanceFields(commissionID, updates); err != nil {
			return err
		}
		return s.auditService.RecordTx(tx, AuditRecordInput{
			Action:     constants.AuditActionCommissionSplitCalculated,
			EntityType: constants.EntityTypeCommission,
			EntityID:   strconv.FormatUint(uint64(commissionID), 10),
			Actor:      actor,
			Detail: models.JSON{
				"rule_scope":                rule.Scope,
				"rule_id":                   rule.ID,
				"platform_fee_amount":       amounts.Platform.StringFixed(2),
				"origin_broker_amount":      amounts.OriginBroker.StringFixed(2),
				"reservation_broker_amount": amounts.ReservationBroker.StringFixed(2),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetFinanceByCommissionID(commissionID)
}

// LockSplit 锁定已计算的分成
func (s *CommissionService) LockSplit(commissionID uint, actor string) error {
	finance, err := s.repo.GetFinanceByCommissionID(commissionID)
	if err != nil {
		return err
	}
	if finance == nil {
		return ErrCommissionNotFound
	}
	if finance.SplitStatus == constants.SplitStatusLocked {
		return ErrSplitLocked
	}
	if finance.SplitStatus != constants.SplitStatusCalculated {
		return ErrSplitNotCalculated
	}
	now := time.Now()
	return s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if err := repoTx.UpdateFinanceFields(commissionID, map[string]interface{}{
			"split_status": constants.SplitStatusLocked,
			"locked_at":    now,
		}); err != nil {
			return err
		}
		return s.auditService.RecordTx(tx, AuditRecordInput{
			Action:     constants.AuditActionCommissionSplitLocked,
			EntityType: constants.EntityTypeCommission,
			EntityID:   strconv.FormatUint(uint64(commissionID), 10),
			Actor:      actor,
			OldState:   constants.SplitStatusCalculated,
			NewState:   constants.SplitStatusLocked,
		})
	})
}

// ConfirmInvestment 管理员确认投资成交
func (s *CommissionService) ConfirmInvestment(commissionID uint, actor string, now time.Time) error {
	tracking, err := s.GetByID(commissionID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(tracking.TerminationReason) != "" {
		return ErrCommissionTerminated
	}
	if tracking.EntitlementPhase != constants.EntitlementPhaseNegotiation {
		return ErrCommissionPhaseInvalid
	}
	if !isCollectabilityTransitionAllowed(tracking.Collectability, constants.CollectabilityCollectable) {
		return ErrCollectabilityInvalid
	}
	paymentDeadline := s.policy.PlatformPaymentDeadline(now)
	return s.transition(tracking, actor, transitionChange{
		action: constants.AuditActionCommissionInvestmentConfirmed,
		note:   "investment confirmed",
		updates: map[string]interface{}{
			"status":                    constants.CommissionStatusEntitled,
			"entitlement_phase":         constants.EntitlementPhasePlatformEntitled,
			"collectability":            constants.CollectabilityCollectable,
			"investment_confirmed_at":   now,
			"platform_payment_deadline": paymentDeadline,
			"waiting_on":                constants.WaitingOnPlatform,
		},
		newStatus:         constants.CommissionStatusEntitled,
		newPhase:          constants.EntitlementPhasePlatformEntitled,
		newCollectability: constants.CollectabilityCollectable,
		detail: models.JSON{
			"investment_confirmed_at":   now,
			"platform_payment_deadline": paymentDeadline,
		},
	})
}

// MarkPlatformPaid 平台确认开发商款项到账
func (s *CommissionService) MarkPlatformPaid(commissionID uint, actor string, now time.Time) error {
	tracking, err := s.GetByID(commissionID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(tracking.TerminationReason) != "" {
		return ErrCommissionTerminated
	}
	if tracking.EntitlementPhase != constants.EntitlementPhasePlatformEntitled {
		return ErrCommissionPhaseInvalid
	}
	payoutDeadline := s.policy.BrokerPayoutDeadline(now)
	return s.transition(tracking, actor, transitionChange{
		action: constants.AuditActionCommissionPlatformPaid,
		note:   "platform payment received",
		updates: map[string]interface{}{
			"status":                 constants.CommissionStatusPayable,
			"entitlement_phase":      constants.EntitlementPhasePlatformPaid,
			"platform_paid_at":       now,
			"broker_payout_deadline": payoutDeadline,
			"waiting_on":             constants.WaitingOnBroker,
		},
		newStatus:         constants.CommissionStatusPayable,
		newPhase:          constants.EntitlementPhasePlatformPaid,
		newCollectability: tracking.Collectability,
		detail: models.JSON{
			"platform_paid_at":       now,
			"broker_payout_deadline": payoutDeadline,
		},
	})
}

// MarkBrokerPayable 确认经纪人份额进入待结算
func (s *CommissionService) MarkBrokerPayable(commissionID uint, actor string, now time.Time) error {
	tracking, err := s.GetByID(commissionID)
	if err != nil {
		return err
	}
	if tracking.EntitlementPhase != constants.EntitlementPhasePlatformPaid {
		return ErrCommissionPhaseInvalid
	}
	return s.transition(tracking, actor, transitionChange{
		action: constants.AuditActionCommissionBrokerPayable,
		note:   "broker share payable",
		updates: map[string]interface{}{
			"entitlement_phase": constants.EntitlementPhaseBrokerPayable,
			"waiting_on":        constants.WaitingOnPlatform,
		},
		newStatus:         tracking.Status,
		newPhase:          constants.EntitlementPhaseBrokerPayable,
		newCollectability: tracking.Collectability,
	})
}

// MarkPaid 佣金全额结清
func (s *CommissionService) MarkPaid(commissionID uint, actor string, now time.Time) error {
	tracking, err := s.GetByID(commissionID)
	if err != nil {
		return err
	}
	if tracking.EntitlementPhase != constants.EntitlementPhaseBrokerPayable {
		return ErrCommissionPhaseInvalid
	}
	return s.transition(tracking, actor, transitionChange{
		action: constants.AuditActionCommissionPaid,
		note:   "commission settled",
		updates: map[string]interface{}{
			"status":            constants.CommissionStatusPaid,
			"entitlement_phase": constants.EntitlementPhaseSettled,
			"paid_at":           now,
			"waiting_on":        constants.WaitingOnNone,
		},
		newStatus:         constants.CommissionStatusPaid,
		newPhase:          constants.EntitlementPhaseSettled,
		newCollectability: tracking.Collectability,
		detail: models.JSON{
			"paid_at": now,
		},
	})
}

// WriteOff 管理员核销佣金。
//
// 仅允许从 in_collection 核销，且必须给出不少于 50 字符的理由；
// 自动流程永远不会调用本方法。
func (s *CommissionService) WriteOff(commissionID uint, actor, reason string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" || actor == constants.ActorSystem {
		return ErrWriteOffAdminOnly
	}
	reason = strings.TrimSpace(reason)
	// 长度按字符数而非字节数计
	if utf8.RuneCountInString(reason) < minWriteOffReasonLength {
		return ErrWriteOffReasonTooShort
	}
	tracking, err := s.GetByID(commissionID)
	if err != nil {
		return err
	}
	if tracking.Collectability != constants.CollectabilityInCollection {
		return ErrWriteOffInvalidState
	}

	updates := map[string]interface{}{
		"status":                     constants.CommissionStatusWrittenOff,
		"collectability":             constants.CollectabilityWrittenOff,
		"termination_reason_details": reason,
		"waiting_on":                 constants.WaitingOnNone,
	}
	if strings.TrimSpace(tracking.TerminationReason) == "" {
		updates["termination_reason"] = constants.TerminationReasonWrittenOff
	}

	return s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if err := repoTx.UpdateFields(tracking.ID, updates); err != nil {
			return err
		}
		if err := repoTx.AppendHistory(&models.CommissionStatusHistory{
			CommissionID:     tracking.ID,
			Status:           constants.CommissionStatusWrittenOff,
			EntitlementPhase: tracking.EntitlementPhase,
			Collectability:   constants.CollectabilityWrittenOff,
			ChangedBy:        actor,
			Note:             "written off",
		}); err != nil {
			return err
		}
		return s.auditService.RecordTx(tx, AuditRecordInput{
			Action:     constants.AuditActionCommissionWrittenOff,
			EntityType: constants.EntityTypeCommission,
			EntityID:   strconv.FormatUint(uint64(tracking.ID), 10),
			Actor:      actor,
			OldState:   constants.CollectabilityInCollection,
			NewState:   constants.CollectabilityWrittenOff,
			Reason:     reason,
			Severity:   constants.AuditSeverityHigh,
			Detail: models.JSON{
				"collection_attempts": tracking.CollectionAttempts,
				"legal_status":        tracking.LegalStatus,
				"commission_amount":   tracking.CommissionAmount.String(),
			},
		})
	})
}

// SweepDeadlines 每日截止时限巡检。
//
// 整轮使用同一个 now；逐条独立事务，单条失败不阻断其余记录，重复执行无副作用。
func (s *CommissionService) SweepDeadlines(now time.Time, runID string) (DeadlineSweepStats, error) {
	stats := DeadlineSweepStats{}
	if s == nil || s.repo == nil {
		return stats, nil
	}

	expired, err := s.repo.ListNegotiationExpired(now, deadlineSweepBatchSize)
	if err != nil {
		return stats, err
	}
	for i := range expired {
		item := expired[i]
		if err := s.expireNegotiation(&item, now, runID); err != nil {
			stats.Failed++
			logger.Warnw("commission_negotiation_expire_failed",
				"commission_id", item.ID,
				"run_id", runID,
				"error", err,
			)
			continue
		}
		stats.NegotiationExpired++
	}

	overdue, err := s.repo.ListCollectableOverdue(now, deadlineSweepBatchSize)
	if err != nil {
		return stats, err
	}
	for i := range overdue {
		item := overdue[i]
		if err := s.moveToCollection(&item, now, runID); err != nil {
			stats.Failed++
			logger.Warnw("commission_move_to_collection_failed",
				"commission_id", item.ID,
				"run_id", runID,
				"error", err,
			)
			continue
		}
		stats.MovedToCollection++
	}

	logger.Infow("commission_deadline_sweep_completed",
		"run_id", runID,
		"negotiation_expired", stats.NegotiationExpired,
		"moved_to_collection", stats.MovedToCollection,
		"failed", stats.Failed,
	)
	return stats, nil
}

func (s *CommissionService) expireNegotiation(tracking *models.CommissionTracking, now time.Time, runID string) error {
	// 终止原因一次性写入，已写过的记录跳过
	if strings.TrimSpace(tracking.TerminationReason) != "" {
		return nil
	}
	return s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if err := repoTx.UpdateFields(tracking.ID, map[string]interface{}{
			"termination_reason":         constants.TerminationReasonNegotiationExpired,
			"termination_reason_details": "negotiation deadline exceeded",
			"waiting_on":                 constants.WaitingOnNone,
		}); err != nil {
			return err
		}
		if err := repoTx.AppendHistory(&models.CommissionStatusHistory{
			CommissionID:     tracking.ID,
			Status:           tracking.Status,
			EntitlementPhase: tracking.EntitlementPhase,
			Collectability:   tracking.Collectability,
			ChangedBy:        constants.ActorSystem,
			Note:             "negotiation deadline exceeded",
		}); err != nil {
			return err
		}
		return s.auditService.RecordTx(tx, AuditRecordInput{
			Action:     constants.AuditActionCommissionNegotiationExpired,
			EntityType: constants.EntityTypeCommission,
			EntityID:   strconv.FormatUint(uint64(tracking.ID), 10),
			Reason:     constants.TerminationReasonNegotiationExpired,
			Severity:   constants.AuditSeverityWarning,
			RunID:      runID,
			Detail: models.JSON{
				"negotiation_deadline": tracking.NegotiationDeadline,
				"swept_at":             now,
			},
		})
	})
}

func (s *CommissionService) moveToCollection(tracking *models.CommissionTracking, now time.Time, runID string) error {
	if !isCollectabilityTransitionAllowed(tracking.Collectability, constants.CollectabilityInCollection) {
		return nil
	}
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if err := repoTx.UpdateFields(tracking.ID, map[string]interface{}{
			"collectability": constants.CollectabilityInCollection,
		}); err != nil {
			return err
		}
		if err := repoTx.AppendHistory(&models.CommissionStatusHistory{
			CommissionID:     tracking.ID,
			Status:           tracking.Status,
			EntitlementPhase: tracking.EntitlementPhase,
			Collectability:   constants.CollectabilityInCollection,
			ChangedBy:        constants.ActorSystem,
			Note:             "platform payment deadline exceeded",
		}); err != nil {
			return err
		}
		return s.auditService.RecordTx(tx, AuditRecordInput{
			Action:     constants.AuditActionCommissionPaymentOverdue,
			EntityType: constants.EntityTypeCommission,
			EntityID:   strconv.FormatUint(uint64(tracking.ID), 10),
			OldState:   constants.CollectabilityCollectable,
			NewState:   constants.CollectabilityInCollection,
			Severity:   constants.AuditSeverityWarning,
			RunID:      runID,
			Detail: models.JSON{
				"platform_payment_deadline": tracking.PlatformPaymentDeadline,
				"swept_at":                  now,
			},
		})
	})
	if err != nil {
		return err
	}
	// 财务侧仅通知，通知失败不回滚状态
	logger.Warnw("finance_collection_notification",
		"commission_id", tracking.ID,
		"broker_id", tracking.BrokerID,
		"amount", tracking.CommissionAmount.String(),
		"run_id", runID,
	)
	return nil
}

type transitionChange struct {
	action            string
	note              string
	updates           map[string]interface{}
	newStatus         string
	newPhase          string
	newCollectability string
	detail            models.JSON
}

func (s *CommissionService) transition(tracking *models.CommissionTracking, actor string, change transitionChange) error {
	return s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if err := repoTx.UpdateFields(tracking.ID, change.updates); err != nil {
			return err
		}
		changedBy := strings.TrimSpace(actor)
		if changedBy == "" {
			changedBy = constants.ActorSystem
		}
		if err := repoTx.AppendHistory(&models.CommissionStatusHistory{
			CommissionID:     tracking.ID,
			Status:           change.newStatus,
			EntitlementPhase: change.newPhase,
			Collectability:   change.newCollectability,
			ChangedBy:        changedBy,
			Note:             change.note,
		}); err != nil {
			return err
		}
		return s.auditService.RecordTx(tx, AuditRecordInput{
			Action:     change.action,
			EntityType: constants.EntityTypeCommission,
			EntityID:   strconv.FormatUint(uint64(tracking.ID), 10),
			Actor:      actor,
			OldState:   tracking.EntitlementPhase,
			NewState:   change.newPhase,
			Detail:     change.detail,
		})
	})
}

// resolveSplitRule 解析生效的分成规则：项目级 → 全局 → 内置兜底
func (s *CommissionService) resolveSplitRule(projectID uint) (*models.CommissionSplitRule, error) {
	if s.splitRuleRepo != nil {
		override, err := s.splitRuleRepo.GetActiveProjectOverride(projectID)
		if err != nil {
			return nil, err
		}
		if override != nil {
			return override, nil
		}

		var cached models.CommissionSplitRule
		ctx := context.Background()
		if hit, err := cache.GetJSON(ctx, splitRuleGlobalDefaultCacheKey, &cached); err == nil && hit && cached.ID != 0 {
			return &cached, nil
		}
		global, err := s.splitRuleRepo.GetActiveGlobalDefault()
		if err != nil {
			return nil, err
		}
		if global != nil {
			if err := cache.SetJSON(ctx, splitRuleGlobalDefaultCacheKey, global, splitRuleCacheTTL); err != nil {
				logger.Debugw("split_rule_cache_set_failed", "error", err)
			}
			return global, nil
		}
	}
	// 无任何有效规则时使用内置兜底比例
	return &models.CommissionSplitRule{
		Name:                     "built-in default",
		Scope:                    constants.SplitRuleScopeGlobalDefault,
		PlatformFeePercent:       constants.FallbackPlatformFeePercent,
		OriginBrokerPercent:      constants.FallbackOriginBrokerPercent,
		ReservationBrokerPercent: constants.FallbackReservationBrokerPercent,
		IsActive:                 true,
		CreatedBy:                constants.ActorSystem,
	}, nil
}

// CreateSplitRule 创建分成规则（旧规则通过停用替换，不做原地修改）
func (s *CommissionService) CreateSplitRule(input CreateSplitRuleInput) (*models.CommissionSplitRule, error) {
	percents := SplitPercents{
		Platform:          input.PlatformFeePercent,
		OriginBroker:      input.OriginBrokerPercent,
		ReservationBroker: input.ReservationBrokerPercent,
	}
	if err := ValidateSplitPercents(percents); err != nil {
		return nil, err
	}
	scope := strings.TrimSpace(input.Scope)
	if scope != constants.SplitRuleScopeGlobalDefault && scope != constants.SplitRuleScopeProjectOverride {
		return nil, ErrSplitRuleNotFound
	}
	var projectID *uint
	if scope == constants.SplitRuleScopeProjectOverride {
		if input.ProjectID == 0 {
			return nil, ErrProjectNotFound
		}
		id := input.ProjectID
		projectID = &id
	}
	createdBy := strings.TrimSpace(input.CreatedBy)
	if createdBy == "" {
		createdBy = constants.ActorSystem
	}
	rule := &models.CommissionSplitRule{
		Name:                     strings.TrimSpace(input.Name),
		Scope:                    scope,
		ProjectID:                projectID,
		PlatformFeePercent:       input.PlatformFeePercent,
		OriginBrokerPercent:      input.OriginBrokerPercent,
		ReservationBrokerPercent: input.ReservationBrokerPercent,
		IsActive:                 true,
		CreatedBy:                createdBy,
	}
	if err := s.splitRuleRepo.Create(rule); err != nil {
		return nil, err
	}
	// 全局默认规则变更后使缓存失效
	if scope == constants.SplitRuleScopeGlobalDefault {
		if err := cache.Del(context.Background(), splitRuleGlobalDefaultCacheKey); err != nil {
			logger.Debugw("split_rule_cache_del_failed", "error", err)
		}
	}
	return rule, nil
}

// DeactivateSplitRule 停用分成规则
func (s *CommissionService) DeactivateSplitRule(id uint) error {
	rule, err := s.splitRuleRepo.GetByID(id)
	if err != nil {
		return err
	}
	if rule == nil {
		return ErrSplitRuleNotFound
	}
	if err := s.splitRuleRepo.Deactivate(id, time.Now()); err != nil {
		return err
	}
	if rule.Scope == constants.SplitRuleScopeGlobalDefault {
		if err := cache.Del(context.Background(), splitRuleGlobalDefaultCacheKey); err != nil {
			logger.Debugw("split_rule_cache_del_failed", "error", err)
		}
	}
	return nil
}

// ListSplitRules 查询分成规则列表
func (s *CommissionService) ListSplitRules(filter repository.SplitRuleListFilter) ([]models.CommissionSplitRule, int64, error) {
	return s.splitRuleRepo.List(filter)
}

// CreateSplitRuleInput 创建分成规则输入
type CreateSplitRuleInput struct {
	Name                     string
	Scope                    string
	ProjectID                uint
	PlatformFeePercent       int
	OriginBrokerPercent      int
	ReservationBrokerPercent int
	CreatedBy                string
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
