package service

import (
	"math"
	"strconv"
	"time"

	"github.com/tipari/platform/internal/config"
	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/logger"
	"github.com/tipari/platform/internal/models"
	"github.com/tipari/platform/internal/queue"
	"github.com/tipari/platform/internal/repository"
)

const (
	// 匹配权重：投资形式 0.4、收益率区间 0.3、担保类型交集 0.3
	matchWeightInvestmentForm = 0.4
	matchWeightYield          = 0.3
	matchWeightSecurity       = 0.3

	matchQualityHighMin   = 0.8
	matchQualityMediumMin = 0.5

	defaultActivationThreshold = 0.5
	defaultScoreDriftTolerance = 0.01
	defaultSLAWindowHours      = 24

	validationBatchSize = 500
)

// MatchComputation 单次匹配计算结果
type MatchComputation struct {
	Score             float64
	Quality           string
	MatchedAttributes models.StringArray
}

// CalculateMatchScore 计算投资人与票据的匹配得分。
//
// 纯函数，不触库：三项独立加权，命中属性按固定顺序记录。
func CalculateMatchScore(investor *models.Investor, ticket *models.Ticket, project *models.Project) MatchComputation {
	comp := MatchComputation{MatchedAttributes: models.StringArray{}}
	if investor == nil || ticket == nil || project == nil {
		comp.Quality = constants.MatchQualityLow
		return comp
	}

	if investor.InvestmentForms.Contains(project.InvestmentForm) {
		comp.Score += matchWeightInvestmentForm
		comp.MatchedAttributes = append(comp.MatchedAttributes, constants.MatchAttributeInvestmentForm)
	}

	// 收益率区间两端均为闭区间
	yield := project.YieldPA.Decimal
	if yield.Cmp(investor.YieldMin.Decimal) >= 0 && yield.Cmp(investor.YieldMax.Decimal) <= 0 {
		comp.Score += matchWeightYield
		comp.MatchedAttributes = append(comp.MatchedAttributes, constants.MatchAttributeYield)
	}

	if hasIntersection(investor.SecurityTypes, ticket.SecurityTypes) {
		comp.Score += matchWeightSecurity
		comp.MatchedAttributes = append(comp.MatchedAttributes, constants.MatchAttributeSecurity)
	}

	comp.Quality = matchQualityForScore(comp.Score)
	return comp
}

func matchQualityForScore(score float64) string {
	switch {
	case score >= matchQualityHighMin:
		return constants.MatchQualityHigh
	case score >= matchQualityMediumMin:
		return constants.MatchQualityMedium
	default:
		return constants.MatchQualityLow
	}
}

func hasIntersection(a, b models.StringArray) bool {
	for _, item := range a {
		if b.Contains(item) {
			return true
		}
	}
	return false
}

// MatchingService 投资人票据匹配服务
type MatchingService struct {
	repo            repository.MatchingRepository
	investorRepo    repository.InvestorRepository
	ticketRepo      repository.TicketRepository
	auditService    *AuditService
	incidentService *IncidentService
	auditRepo       repository.AuditEventRepository
	queueClient     *queue.Client

	activationThreshold float64
	driftTolerance      float64
	slaWindow           time.Duration
}

// NewMatchingService 创建匹配服务
func NewMatchingService(
	repo repository.MatchingRepository,
	investorRepo repository.InvestorRepository,
	ticketRepo repository.TicketRepository,
	auditService *AuditService,
	incidentService *IncidentService,
	auditRepo repository.AuditEventRepository,
	queueClient *queue.Client,
	cfg *config.MatchingConfig,
) *MatchingService {
	threshold := defaultActivationThreshold
	drift := defaultScoreDriftTolerance
	slaHours := defaultSLAWindowHours
	if cfg != nil {
		if cfg.ActivationThreshold > 0 {
			threshold = cfg.ActivationThreshold
		}
		if cfg.ScoreDriftTolerance > 0 {
			drift = cfg.ScoreDriftTolerance
		}
		if cfg.SLAWindowHours > 0 {
			slaHours = cfg.SLAWindowHours
		}
	}
	return &MatchingService{
		repo:                repo,
		investorRepo:        investorRepo,
		ticketRepo:          ticketRepo,
		auditService:        auditService,
		incidentService:     incidentService,
		auditRepo:           auditRepo,
		queueClient:         queueClient,
		activationThreshold: threshold,
		driftTolerance:      drift,
		slaWindow:           time.Duration(slaHours) * time.Hour,
	}
}

// RecalculateStats 匹配重算统计
type RecalculateStats struct {
	Evaluated   int
	Created     int
	Updated     int
	Deactivated int
}

// ValidationStats 匹配校验统计
type ValidationStats struct {
	Checked   int
	Removed   int
	Refreshed int
	Failed    int
}

// ListForAdmin 管理端查询匹配结果
func (s *MatchingService) ListForAdmin(filter repository.MatchListFilter) ([]models.InvestorMatchingResult, int64, error) {
	return s.repo.List(filter)
}

// ListActiveForInvestor 查询投资人的有效匹配
func (s *MatchingService) ListActiveForInvestor(investorID uint) ([]models.InvestorMatchingResult, error) {
	investor, err := s.investorRepo.GetByID(investorID)
	if err != nil {
		return nil, err
	}
	if investor == nil {
		return nil, ErrInvestorNotFound
	}
	return s.repo.ListActiveByInvestor(investorID)
}

// RecalculateForInvestor 重算投资人的完整匹配集合。
//
// 替换语义：超过阈值的组合创建或刷新，其余有效匹配全部失效。
// 投资人已删除或非 active 状态时仅做清场。
func (s *MatchingService) RecalculateForInvestor(investorID uint) (RecalculateStats, error) {
	stats := RecalculateStats{}
	investor, err := s.investorRepo.GetByID(investorID)
	if err != nil {
		return stats, err
	}
	if investor == nil || investor.State != constants.InvestorStateActive {
		reason := constants.MatchRemovalReasonInvestorDeleted
		if investor != nil {
			reason = constants.MatchRemovalReasonStateChanged
		}
		removed, err := s.deactivateForInvestor(investorID, reason)
		stats.Deactivated = removed
		return stats, err
	}

	tickets, err := s.ticketRepo.ListAvailableOfPublishedProjects()
	if err != nil {
		return stats, err
	}

	kept := make(map[uint]bool, len(tickets))
	for i := range tickets {
		ticket := tickets[i]
		comp := CalculateMatchScore(investor, &ticket, &ticket.Project)
		stats.Evaluated++
		if comp.Score <= s.activationThreshold {
			continue
		}
		created, updated, err := s.upsertMatch(investor.ID, ticket.ID, comp)
		if err != nil {
			return stats, err
		}
		kept[ticket.ID] = true
		if created {
			stats.Created++
		}
		if updated {
			stats.Updated++
		}
	}

	actives, err := s.repo.ListActiveByInvestor(investor.ID)
	if err != nil {
		return stats, err
	}
	for i := range actives {
		if kept[actives[i].TicketID] {
			continue
		}
		if err := s.deactivateMatch(&actives[i], constants.MatchRemovalReasonBelowThreshold); err != nil {
			return stats, err
		}
		stats.Deactivated++
	}

	if err := s.auditService.Record(AuditRecordInput{
		Action:     constants.AuditActionMatchResultsUpdated,
		EntityType: constants.EntityTypeInvestor,
		EntityID:   strconv.FormatUint(uint64(investor.ID), 10),
		Detail: models.JSON{
			"evaluated":   stats.Evaluated,
			"created":     stats.Created,
			"updated":     stats.Updated,
			"deactivated": stats.Deactivated,
		},
	}); err != nil {
		return stats, err
	}
	return stats, nil
}

// UpdateForTicket 在票据变更后刷新该票据的匹配集合。
//
// 票据不再可预约时整票失效，否则对全部 active 投资人重新评估。
func (s *MatchingService) UpdateForTicket(ticketID uint) (RecalculateStats, error) {
	stats := RecalculateStats{}
	ticket, err := s.ticketRepo.GetByIDWithProject(ticketID)
	if err != nil {
		return stats, err
	}
	if ticket == nil {
		removed, err := s.DeactivateForTicket(ticketID, constants.MatchRemovalReasonTicketDeleted)
		stats.Deactivated = removed
		if err != nil {
			return stats, err
		}
		return stats, s.recordTicketResultsAudit(ticketID, stats)
	}
	if ticket.Status != constants.TicketStatusAvailable || ticket.Project.Status != constants.ProjectStatusPublished {
		reason := constants.MatchRemovalReasonStateChanged
		if ticket.Status == constants.TicketStatusClosed || ticket.Status == constants.TicketStatusCompleted {
			reason = constants.MatchRemovalReasonTicketClosed
		}
		removed, err := s.DeactivateForTicket(ticketID, reason)
		stats.Deactivated = removed
		if err != nil {
			return stats, err
		}
		// 失效分支同样要落刷新完成审计，SLA 巡检以它为触发已消化的凭证
		return stats, s.recordTicketResultsAudit(ticketID, stats)
	}

	investors, err := s.investorRepo.ListActive()
	if err != nil {
		return stats, err
	}
	kept := make(map[uint]bool, len(investors))
	for i := range investors {
		investor := investors[i]
		comp := CalculateMatchScore(&investor, ticket, &ticket.Project)
		stats.Evaluated++
		if comp.Score <= s.activationThreshold {
			continue
		}
		created, updated, err := s.upsertMatch(investor.ID, ticket.ID, comp)
		if err != nil {
			return stats, err
		}
		kept[investor.ID] = true
		if created {
			stats.Created++
		}
		if updated {
			stats.Updated++
		}
	}

	actives, err := s.repo.ListActiveByTicket(ticket.ID)
	if err != nil {
		return stats, err
	}
	for i := range actives {
		if kept[actives[i].InvestorID] {
			continue
		}
		if err := s.deactivateMatch(&actives[i], constants.MatchRemovalReasonBelowThreshold); err != nil {
			return stats, err
		}
		stats.Deactivated++
	}

	if err := s.recordTicketResultsAudit(ticket.ID, stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *MatchingService) recordTicketResultsAudit(ticketID uint, stats RecalculateStats) error {
	return s.auditService.Record(AuditRecordInput{
		Action:     constants.AuditActionMatchResultsUpdated,
		EntityType: constants.EntityTypeTicket,
		EntityID:   strconv.FormatUint(uint64(ticketID), 10),
		Detail: models.JSON{
			"evaluated":   stats.Evaluated,
			"created":     stats.Created,
			"updated":     stats.Updated,
			"deactivated": stats.Deactivated,
		},
	})
}

// DeactivateForTicket 失效某张票据下的全部有效匹配，只影响该票据
func (s *MatchingService) DeactivateForTicket(ticketID uint, reason string) (int, error) {
	actives, err := s.repo.ListActiveByTicket(ticketID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := range actives {
		if err := s.deactivateMatch(&actives[i], reason); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// HandleTicketStatusChange 票据状态变更入口
func (s *MatchingService) HandleTicketStatusChange(ticketID uint) error {
	_, err := s.UpdateForTicket(ticketID)
	return err
}

// TriggerInvestorRecalculation 投资人变更触发重算，队列可用时异步执行
func (s *MatchingService) TriggerInvestorRecalculation(investorID uint) error {
	if s.queueClient.Enabled() {
		return s.queueClient.EnqueueMatchRecalculateInvestor(queue.MatchRecalculateInvestorPayload{InvestorID: investorID})
	}
	_, err := s.RecalculateForInvestor(investorID)
	return err
}

// TriggerTicketUpdate 票据变更触发匹配刷新，队列可用时异步执行
func (s *MatchingService) TriggerTicketUpdate(ticketID uint) error {
	if s.queueClient.Enabled() {
		return s.queueClient.EnqueueMatchUpdateTicket(queue.MatchUpdateTicketPayload{TicketID: ticketID})
	}
	return s.HandleTicketStatusChange(ticketID)
}

// ValidateMatches 每日全量校验有效匹配。
//
// 整轮使用同一个 now 与 run_id；逐行独立处理，单行失败不阻断其余行。
func (s *MatchingService) ValidateMatches(now time.Time, runID string) (ValidationStats, error) {
	stats := ValidationStats{}
	if err := s.auditService.Record(AuditRecordInput{
		Action: constants.AuditActionMatchValidationStarted,
		RunID:  runID,
	}); err != nil {
		return stats, err
	}

	var lastID uint
	for {
		rows, err := s.repo.ListActiveAfter(lastID, validationBatchSize)
		if err != nil {
			return stats, err
		}
		if len(rows) == 0 {
			break
		}
		for i := range rows {
			row := rows[i]
			removed, refreshed, err := s.validateOne(&row, now, runID)
			stats.Checked++
			if err != nil {
				stats.Failed++
				logger.Warnw("match_validation_row_failed",
					"match_id", row.ID,
					"run_id", runID,
					"error", err,
				)
				continue
			}
			if removed {
				stats.Removed++
			}
			if refreshed {
				stats.Refreshed++
			}
		}
		lastID = rows[len(rows)-1].ID
		if len(rows) < validationBatchSize {
			break
		}
	}

	if err := s.auditService.Record(AuditRecordInput{
		Action: constants.AuditActionMatchValidationCompleted,
		RunID:  runID,
		Detail: models.JSON{
			"checked":   stats.Checked,
			"removed":   stats.Removed,
			"refreshed": stats.Refreshed,
			"failed":    stats.Failed,
		},
	}); err != nil {
		return stats, err
	}
	logger.Infow("match_validation_completed",
		"run_id", runID,
		"checked", stats.Checked,
		"removed", stats.Removed,
		"refreshed", stats.Refreshed,
		"failed", stats.Failed,
	)
	return stats, nil
}

func (s *MatchingService) validateOne(row *models.InvestorMatchingResult, now time.Time, runID string) (removed, refreshed bool, err error) {
	investor, err := s.investorRepo.GetByID(row.InvestorID)
	if err != nil {
		return false, false, err
	}
	if investor == nil {
		return true, false, s.deactivateWithRun(row, constants.MatchRemovalReasonInvestorDeleted, now, runID)
	}
	if investor.State != constants.InvestorStateActive {
		return true, false, s.deactivateWithRun(row, constants.MatchRemovalReasonStateChanged, now, runID)
	}

	ticket, err := s.ticketRepo.GetByIDWithProject(row.TicketID)
	if err != nil {
		return false, false, err
	}
	if ticket == nil {
		return true, false, s.deactivateWithRun(row, constants.MatchRemovalReasonTicketDeleted, now, runID)
	}
	if ticket.Status != constants.TicketStatusAvailable || ticket.Project.Status != constants.ProjectStatusPublished {
		return true, false, s.deactivateWithRun(row, constants.MatchRemovalReasonStateChanged, now, runID)
	}

	comp := CalculateMatchScore(investor, ticket, &ticket.Project)
	if comp.Score <= s.activationThreshold {
		return true, false, s.deactivateWithRun(row, constants.MatchRemovalReasonBelowThreshold, now, runID)
	}

	updates := map[string]interface{}{
		"last_validated_at": now,
		"validation_run_id": runID,
	}
	if math.Abs(comp.Score-row.MatchScore) > s.driftTolerance {
		updates["match_score"] = comp.Score
		updates["match_quality"] = comp.Quality
		updates["matched_attributes"] = comp.MatchedAttributes
		if err := s.repo.UpdateScore(row.ID, updates); err != nil {
			return false, false, err
		}
		if err := s.auditService.Record(AuditRecordInput{
			Action:     constants.AuditActionMatchScoreUpdated,
			EntityType: constants.EntityTypeMatch,
			EntityID:   strconv.FormatUint(uint64(row.ID), 10),
			RunID:      runID,
			Detail: models.JSON{
				"old_score": row.MatchScore,
				"new_score": comp.Score,
			},
		}); err != nil {
			return false, false, err
		}
		return false, true, nil
	}
	return false, false, s.repo.UpdateFields(row.ID, updates)
}

// MonitorSLA 巡检匹配重算时效。
//
// 投资人或票据变更后，若超过 SLA 窗口仍未出现对应的匹配刷新事件，
// 记录违规审计并开具事故。
func (s *MatchingService) MonitorSLA(now time.Time) (int, error) {
	triggers, err := s.auditRepo.ListByActionsSince(
		[]string{constants.AuditActionInvestorUpdated, constants.AuditActionTicketUpdated},
		now.Add(-2*s.slaWindow),
	)
	if err != nil {
		return 0, err
	}

	violations := 0
	for i := range triggers {
		trigger := triggers[i]
		deadline := trigger.CreatedAt.Add(s.slaWindow)
		if deadline.After(now) {
			continue
		}
		followUp, err := s.auditRepo.GetFirstAfter(
			trigger.EntityType, trigger.EntityID,
			[]string{constants.AuditActionMatchResultsUpdated},
			trigger.CreatedAt,
		)
		if err != nil {
			return violations, err
		}
		if followUp != nil && !followUp.CreatedAt.After(deadline) {
			continue
		}
		// 同一触发事件只告警一次
		alerted, err := s.auditRepo.GetFirstAfter(
			trigger.EntityType, trigger.EntityID,
			[]string{constants.AuditActionMatchSLAViolation},
			trigger.CreatedAt,
		)
		if err != nil {
			return violations, err
		}
		if alerted != nil {
			continue
		}

		violations++
		if err := s.auditService.Record(AuditRecordInput{
			Action:     constants.AuditActionMatchSLAViolation,
			EntityType: trigger.EntityType,
			EntityID:   trigger.EntityID,
			Severity:   constants.AuditSeverityHigh,
			Detail: models.JSON{
				"trigger_action": trigger.Action,
				"trigger_at":     trigger.CreatedAt,
				"deadline":       deadline,
			},
		}); err != nil {
			return violations, err
		}
		if err := s.incidentService.Raise(
			constants.IncidentSourceSLAMonitor,
			constants.AuditSeverityHigh,
			"matching recalculation SLA violated",
			models.JSON{
				"entity_type":    trigger.EntityType,
				"entity_id":      trigger.EntityID,
				"trigger_action": trigger.Action,
				"trigger_at":     trigger.CreatedAt,
			},
		); err != nil {
			return violations, err
		}
	}
	return violations, nil
}

func (s *MatchingService) upsertMatch(investorID, ticketID uint, comp MatchComputation) (created, updated bool, err error) {
	existing, err := s.repo.GetByPair(investorID, ticketID)
	if err != nil {
		return false, false, err
	}
	if existing == nil {
		result := &models.InvestorMatchingResult{
			InvestorID:        investorID,
			TicketID:          ticketID,
			MatchScore:        comp.Score,
			MatchQuality:      comp.Quality,
			MatchedAttributes: comp.MatchedAttributes,
			IsActive:          true,
		}
		if err := s.repo.Create(result); err != nil {
			return false, false, err
		}
		if err := s.auditService.Record(AuditRecordInput{
			Action:     constants.AuditActionMatchResulted,
			EntityType: constants.EntityTypeMatch,
			EntityID:   strconv.FormatUint(uint64(result.ID), 10),
			Detail: models.JSON{
				"investor_id": investorID,
				"ticket_id":   ticketID,
				"score":       comp.Score,
				"quality":     comp.Quality,
			},
		}); err != nil {
			return false, false, err
		}
		return true, false, nil
	}

	if existing.IsActive && math.Abs(existing.MatchScore-comp.Score) <= s.driftTolerance {
		return false, false, nil
	}
	if err := s.repo.UpdateScore(existing.ID, map[string]interface{}{
		"match_score":        comp.Score,
		"match_quality":      comp.Quality,
		"matched_attributes": comp.MatchedAttributes,
		"is_active":          true,
	}); err != nil {
		return false, false, err
	}
	if err := s.auditService.Record(AuditRecordInput{
		Action:     constants.AuditActionMatchScoreUpdated,
		EntityType: constants.EntityTypeMatch,
		EntityID:   strconv.FormatUint(uint64(existing.ID), 10),
		Detail: models.JSON{
			"old_score": existing.MatchScore,
			"new_score": comp.Score,
		},
	}); err != nil {
		return false, false, err
	}
	return false, true, nil
}

func (s *MatchingService) deactivateMatch(row *models.InvestorMatchingResult, reason string) error {
	if err := s.repo.UpdateFields(row.ID, map[string]interface{}{"is_active": false}); err != nil {
		return err
	}
	return s.auditService.Record(AuditRecordInput{
		Action:     constants.AuditActionMatchRemoved,
		EntityType: constants.EntityTypeMatch,
		EntityID:   strconv.FormatUint(uint64(row.ID), 10),
		Reason:     reason,
		Detail: models.JSON{
			"investor_id": row.InvestorID,
			"ticket_id":   row.TicketID,
		},
	})
}

func (s *MatchingService) deactivateWithRun(row *models.InvestorMatchingResult, reason string, now time.Time, runID string) error {
	if err := s.repo.UpdateFields(row.ID, map[string]interface{}{
		"is_active":         false,
		"last_validated_at": now,
		"validation_run_id": runID,
	}); err != nil {
		return err
	}
	return s.auditService.Record(AuditRecordInput{
		Action:     constants.AuditActionMatchInactiveRemoved,
		EntityType: constants.EntityTypeMatch,
		EntityID:   strconv.FormatUint(uint64(row.ID), 10),
		Reason:     reason,
		RunID:      runID,
		Detail: models.JSON{
			"investor_id": row.InvestorID,
			"ticket_id":   row.TicketID,
		},
	})
}

func (s *MatchingService) deactivateForInvestor(investorID uint, reason string) (int, error) {
	actives, err := s.repo.ListActiveByInvestor(investorID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := range actives {
		if err := s.deactivateMatch(&actives[i], reason); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
