package service

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/tipari/platform/internal/config"
	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/models"
	"github.com/tipari/platform/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupMatchingServiceTest(t *testing.T, cfg *config.MatchingConfig) (*MatchingService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:matching_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Project{},
		&models.Ticket{},
		&models.Investor{},
		&models.InvestorMatchingResult{},
		&models.AuditEvent{},
		&models.SystemIncident{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	auditRepo := repository.NewAuditEventRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)
	svc := NewMatchingService(
		repository.NewMatchingRepository(db),
		repository.NewInvestorRepository(db),
		repository.NewTicketRepository(db),
		NewAuditService(auditRepo, incidentRepo),
		NewIncidentService(incidentRepo),
		auditRepo,
		nil,
		cfg,
	)
	return svc, db
}

func seedMatchingProject(t *testing.T, db *gorm.DB, form, yield string) *models.Project {
	t.Helper()
	project := models.Project{
		Name:           fmt.Sprintf("Project %d", time.Now().UnixNano()),
		Status:         constants.ProjectStatusPublished,
		InvestmentForm: form,
		YieldPA:        models.NewMoneyFromDecimal(decimal.RequireFromString(yield)),
	}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("create project failed: %v", err)
	}
	return &project
}

func seedMatchingTicket(t *testing.T, db *gorm.DB, projectID uint, securityTypes models.StringArray) *models.Ticket {
	t.Helper()
	ticket := models.Ticket{
		ProjectID:             projectID,
		Status:                constants.TicketStatusAvailable,
		MinInvestmentAmount:   models.NewMoneyFromDecimal(decimal.RequireFromString("1000000")),
		CommissionRatePercent: 5,
		SecurityTypes:         securityTypes,
	}
	if err := db.Create(&ticket).Error; err != nil {
		t.Fatalf("create ticket failed: %v", err)
	}
	return &ticket
}

func seedMatchingInvestor(t *testing.T, db *gorm.DB, forms models.StringArray, yieldMin, yieldMax string, securityTypes models.StringArray) *models.Investor {
	t.Helper()
	investor := models.Investor{
		Name:            fmt.Sprintf("Investor %d", time.Now().UnixNano()),
		State:           constants.InvestorStateActive,
		InvestmentForms: forms,
		YieldMin:        models.NewMoneyFromDecimal(decimal.RequireFromString(yieldMin)),
		YieldMax:        models.NewMoneyFromDecimal(decimal.RequireFromString(yieldMax)),
		SecurityTypes:   securityTypes,
	}
	if err := db.Create(&investor).Error; err != nil {
		t.Fatalf("create investor failed: %v", err)
	}
	return &investor
}

func scoreEquals(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestCalculateMatchScore(t *testing.T) {
	project := &models.Project{
		Status:         constants.ProjectStatusPublished,
		InvestmentForm: constants.InvestmentFormBond,
		YieldPA:        models.NewMoneyFromDecimal(decimal.RequireFromString("9.5")),
	}
	ticket := &models.Ticket{SecurityTypes: models.StringArray{constants.SecurityTypeMortgage}}

	full := &models.Investor{
		State:           constants.InvestorStateActive,
		InvestmentForms: models.StringArray{constants.InvestmentFormBond},
		YieldMin:        models.NewMoneyFromDecimal(decimal.RequireFromString("8")),
		YieldMax:        models.NewMoneyFromDecimal(decimal.RequireFromString("12")),
		SecurityTypes:   models.StringArray{constants.SecurityTypeMortgage},
	}
	comp := CalculateMatchScore(full, ticket, project)
	if !scoreEquals(comp.Score, 1.0) {
		t.Fatalf("expected full score 1.0, got: %f", comp.Score)
	}
	if comp.Quality != constants.MatchQualityHigh {
		t.Fatalf("expected high quality, got: %s", comp.Quality)
	}
	if len(comp.MatchedAttributes) != 3 {
		t.Fatalf("expected 3 matched attributes, got: %v", comp.MatchedAttributes)
	}

	// 仅投资形式命中
	formOnly := &models.Investor{
		State:           constants.InvestorStateActive,
		InvestmentForms: models.StringArray{constants.InvestmentFormBond},
		YieldMin:        models.NewMoneyFromDecimal(decimal.RequireFromString("10")),
		YieldMax:        models.NewMoneyFromDecimal(decimal.RequireFromString("12")),
		SecurityTypes:   models.StringArray{constants.SecurityTypeGuarantee},
	}
	comp = CalculateMatchScore(formOnly, ticket, project)
	if !scoreEquals(comp.Score, 0.4) {
		t.Fatalf("expected score 0.4, got: %f", comp.Score)
	}
	if comp.Quality != constants.MatchQualityLow {
		t.Fatalf("expected low quality, got: %s", comp.Quality)
	}

	// 形式 + 收益率，质量中档
	formYield := &models.Investor{
		State:           constants.InvestorStateActive,
		InvestmentForms: models.StringArray{constants.InvestmentFormBond},
		YieldMin:        models.NewMoneyFromDecimal(decimal.RequireFromString("8")),
		YieldMax:        models.NewMoneyFromDecimal(decimal.RequireFromString("12")),
		SecurityTypes:   models.StringArray{constants.SecurityTypeGuarantee},
	}
	comp = CalculateMatchScore(formYield, ticket, project)
	if !scoreEquals(comp.Score, 0.7) {
		t.Fatalf("expected score 0.7, got: %f", comp.Score)
	}
	if comp.Quality != constants.MatchQualityMedium {
		t.Fatalf("expected medium quality, got: %s", comp.Quality)
	}

	// 收益率区间两端均为闭区间
	boundary := &models.Investor{
		State:           constants.InvestorStateActive,
		InvestmentForms: models.StringArray{constants.InvestmentFormLoan},
		YieldMin:        models.NewMoneyFromDecimal(decimal.RequireFromString("9.5")),
		YieldMax:        models.NewMoneyFromDecimal(decimal.RequireFromString("9.5")),
		SecurityTypes:   models.StringArray{},
	}
	comp = CalculateMatchScore(boundary, ticket, project)
	if !scoreEquals(comp.Score, 0.3) {
		t.Fatalf("expected inclusive yield bounds to score 0.3, got: %f", comp.Score)
	}
}

func TestMatchActivationThresholdIsStrict(t *testing.T) {
	svc, db := setupMatchingServiceTest(t, &config.MatchingConfig{ActivationThreshold: 0.6})
	project := seedMatchingProject(t, db, constants.InvestmentFormBond, "9.5")
	seedMatchingTicket(t, db, project.ID, models.StringArray{constants.SecurityTypeMortgage})

	// 收益率 + 担保命中，得分恰为阈值，不得入选
	atThreshold := seedMatchingInvestor(t, db,
		models.StringArray{constants.InvestmentFormLoan}, "8", "12",
		models.StringArray{constants.SecurityTypeMortgage})
	stats, err := svc.RecalculateForInvestor(atThreshold.ID)
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if stats.Created != 0 {
		t.Fatalf("expected score at threshold to be excluded, got created: %d", stats.Created)
	}

	// 形式 + 收益率命中，0.7 > 0.6，入选
	aboveThreshold := seedMatchingInvestor(t, db,
		models.StringArray{constants.InvestmentFormBond}, "8", "12",
		models.StringArray{constants.SecurityTypeNone})
	stats, err = svc.RecalculateForInvestor(aboveThreshold.ID)
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if stats.Created != 1 {
		t.Fatalf("expected 1 match created, got: %d", stats.Created)
	}
}

func TestRecalculateForInvestorReplacesSet(t *testing.T) {
	svc, db := setupMatchingServiceTest(t, nil)
	project := seedMatchingProject(t, db, constants.InvestmentFormBond, "9.5")
	matching := seedMatchingTicket(t, db, project.ID, models.StringArray{constants.SecurityTypeMortgage})
	seedMatchingTicket(t, db, project.ID, models.StringArray{constants.SecurityTypeNone})
	investor := seedMatchingInvestor(t, db,
		models.StringArray{constants.InvestmentFormBond}, "8", "12",
		models.StringArray{constants.SecurityTypeMortgage})

	stats, err := svc.RecalculateForInvestor(investor.ID)
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	// 两张票据都超过阈值（0.7 与 1.0），全部入选
	if stats.Evaluated != 2 || stats.Created != 2 {
		t.Fatalf("expected 2 evaluated and created, got: %+v", stats)
	}

	// 重算幂等：无漂移时不产生任何写入
	stats, err = svc.RecalculateForInvestor(investor.ID)
	if err != nil {
		t.Fatalf("second recalculate failed: %v", err)
	}
	if stats.Created != 0 || stats.Updated != 0 || stats.Deactivated != 0 {
		t.Fatalf("expected idempotent recalculation, got: %+v", stats)
	}

	// 偏好收窄后，跌破阈值的旧匹配失效
	if err := db.Model(&models.Investor{}).Where("id = ?", investor.ID).
		Update("investment_forms", models.StringArray{constants.InvestmentFormEquity}).Error; err != nil {
		t.Fatalf("update investor failed: %v", err)
	}
	stats, err = svc.RecalculateForInvestor(investor.ID)
	if err != nil {
		t.Fatalf("third recalculate failed: %v", err)
	}
	// mortgage 票据仍 0.6 > 0.5，另一张 0.3 被移除
	if stats.Deactivated != 1 {
		t.Fatalf("expected 1 deactivated, got: %+v", stats)
	}
	if stats.Updated != 1 {
		t.Fatalf("expected 1 updated, got: %+v", stats)
	}

	var row models.InvestorMatchingResult
	if err := db.Where("investor_id = ? AND ticket_id = ?", investor.ID, matching.ID).First(&row).Error; err != nil {
		t.Fatalf("reload match failed: %v", err)
	}
	if !row.IsActive {
		t.Fatalf("expected surviving match to stay active")
	}
	if !scoreEquals(row.MatchScore, 0.6) {
		t.Fatalf("expected updated score 0.6, got: %f", row.MatchScore)
	}
	if row.RecalculationCount != 1 {
		t.Fatalf("expected recalculation count 1, got: %d", row.RecalculationCount)
	}
}

func TestRecalculateForArchivedInvestorRemovesAll(t *testing.T) {
	svc, db := setupMatchingServiceTest(t, nil)
	project := seedMatchingProject(t, db, constants.InvestmentFormBond, "9.5")
	seedMatchingTicket(t, db, project.ID, models.StringArray{constants.SecurityTypeMortgage})
	investor := seedMatchingInvestor(t, db,
		models.StringArray{constants.InvestmentFormBond}, "8", "12",
		models.StringArray{constants.SecurityTypeMortgage})

	if _, err := svc.RecalculateForInvestor(investor.ID); err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	db.Model(&models.Investor{}).Where("id = ?", investor.ID).Update("state", constants.InvestorStateArchived)

	stats, err := svc.RecalculateForInvestor(investor.ID)
	if err != nil {
		t.Fatalf("recalculate after archive failed: %v", err)
	}
	if stats.Deactivated != 1 {
		t.Fatalf("expected 1 deactivated, got: %+v", stats)
	}
	var activeCount int64
	db.Model(&models.InvestorMatchingResult{}).Where("investor_id = ? AND is_active = ?", investor.ID, true).Count(&activeCount)
	if activeCount != 0 {
		t.Fatalf("expected no active matches, got: %d", activeCount)
	}
}

func TestUpdateForTicketDeactivationIsScoped(t *testing.T) {
	svc, db := setupMatchingServiceTest(t, nil)
	project := seedMatchingProject(t, db, constants.InvestmentFormBond, "9.5")
	closing := seedMatchingTicket(t, db, project.ID, models.StringArray{constants.SecurityTypeMortgage})
	surviving := seedMatchingTicket(t, db, project.ID, models.StringArray{constants.SecurityTypeMortgage})
	investor := seedMatchingInvestor(t, db,
		models.StringArray{constants.InvestmentFormBond}, "8", "12",
		models.StringArray{constants.SecurityTypeMortgage})
	if _, err := svc.RecalculateForInvestor(investor.ID); err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}

	db.Model(&models.Ticket{}).Where("id = ?", closing.ID).Update("status", constants.TicketStatusClosed)
	stats, err := svc.UpdateForTicket(closing.ID)
	if err != nil {
		t.Fatalf("update for ticket failed: %v", err)
	}
	if stats.Deactivated != 1 {
		t.Fatalf("expected 1 deactivated, got: %+v", stats)
	}

	// 每次查询都用全新结构体，避免 gorm 把上一次的主键带进条件
	var closed models.InvestorMatchingResult
	if err := db.Where("investor_id = ? AND ticket_id = ?", investor.ID, closing.ID).First(&closed).Error; err != nil {
		t.Fatalf("reload closed ticket match failed: %v", err)
	}
	if closed.IsActive {
		t.Fatalf("expected closed ticket match deactivated")
	}
	var kept models.InvestorMatchingResult
	if err := db.Where("investor_id = ? AND ticket_id = ?", investor.ID, surviving.ID).First(&kept).Error; err != nil {
		t.Fatalf("reload surviving ticket match failed: %v", err)
	}
	if !kept.IsActive {
		t.Fatalf("expected other ticket match untouched")
	}

	var audit models.AuditEvent
	if err := db.Where("action = ? AND reason = ?", constants.AuditActionMatchRemoved, constants.MatchRemovalReasonTicketClosed).First(&audit).Error; err != nil {
		t.Fatalf("expected ticket_closed removal audit: %v", err)
	}
}

func TestValidateMatchesRefreshAndRemoval(t *testing.T) {
	svc, db := setupMatchingServiceTest(t, nil)
	project := seedMatchingProject(t, db, constants.InvestmentFormBond, "9.5")
	ticket := seedMatchingTicket(t, db, project.ID, models.StringArray{constants.SecurityTypeMortgage})
	drifting := seedMatchingInvestor(t, db,
		models.StringArray{constants.InvestmentFormBond}, "8", "12",
		models.StringArray{constants.SecurityTypeMortgage})
	archived := seedMatchingInvestor(t, db,
		models.StringArray{constants.InvestmentFormBond}, "8", "12",
		models.StringArray{constants.SecurityTypeMortgage})
	for _, id := range []uint{drifting.ID, archived.ID} {
		if _, err := svc.RecalculateForInvestor(id); err != nil {
			t.Fatalf("recalculate failed: %v", err)
		}
	}

	// 人为制造得分漂移与状态漂移
	db.Model(&models.InvestorMatchingResult{}).
		Where("investor_id = ? AND ticket_id = ?", drifting.ID, ticket.ID).
		Update("match_score", 0.55)
	db.Model(&models.Investor{}).Where("id = ?", archived.ID).Update("state", constants.InvestorStateArchived)

	now := time.Now()
	stats, err := svc.ValidateMatches(now, "validation_run_1")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if stats.Checked != 2 {
		t.Fatalf("expected 2 checked, got: %+v", stats)
	}
	if stats.Refreshed != 1 {
		t.Fatalf("expected 1 refreshed, got: %+v", stats)
	}
	if stats.Removed != 1 {
		t.Fatalf("expected 1 removed, got: %+v", stats)
	}

	var refreshed models.InvestorMatchingResult
	db.Where("investor_id = ? AND ticket_id = ?", drifting.ID, ticket.ID).First(&refreshed)
	if !scoreEquals(refreshed.MatchScore, 1.0) {
		t.Fatalf("expected score re-persisted to 1.0, got: %f", refreshed.MatchScore)
	}
	if refreshed.ValidationRunID != "validation_run_1" {
		t.Fatalf("expected validation run stamp, got: %s", refreshed.ValidationRunID)
	}
	if refreshed.LastValidatedAt == nil {
		t.Fatalf("expected last_validated_at set")
	}

	var removed models.InvestorMatchingResult
	db.Where("investor_id = ? AND ticket_id = ?", archived.ID, ticket.ID).First(&removed)
	if removed.IsActive {
		t.Fatalf("expected archived investor match removed")
	}

	var audit models.AuditEvent
	if err := db.Where("action = ? AND reason = ?", constants.AuditActionMatchInactiveRemoved, constants.MatchRemovalReasonStateChanged).First(&audit).Error; err != nil {
		t.Fatalf("expected removal audit: %v", err)
	}
}

func TestMonitorSLARaisesIncidentOnce(t *testing.T) {
	svc, db := setupMatchingServiceTest(t, &config.MatchingConfig{SLAWindowHours: 1})
	now := time.Now()

	// 触发事件早于 SLA 窗口且无后续刷新事件
	trigger := models.AuditEvent{
		Action:     constants.AuditActionInvestorUpdated,
		EntityType: constants.EntityTypeInvestor,
		EntityID:   "42",
		Actor:      "admin_1",
		Severity:   constants.AuditSeverityInfo,
		CreatedAt:  now.Add(-90 * time.Minute),
	}
	if err := db.Create(&trigger).Error; err != nil {
		t.Fatalf("create trigger event failed: %v", err)
	}

	violations, err := svc.MonitorSLA(now)
	if err != nil {
		t.Fatalf("monitor failed: %v", err)
	}
	if violations != 1 {
		t.Fatalf("expected 1 violation, got: %d", violations)
	}
	var incidentCount int64
	db.Model(&models.SystemIncident{}).Where("source = ?", constants.IncidentSourceSLAMonitor).Count(&incidentCount)
	if incidentCount != 1 {
		t.Fatalf("expected 1 incident, got: %d", incidentCount)
	}

	// 同一触发事件只告警一次
	violations, err = svc.MonitorSLA(now)
	if err != nil {
		t.Fatalf("second monitor failed: %v", err)
	}
	if violations != 0 {
		t.Fatalf("expected deduplicated violation, got: %d", violations)
	}
}

func TestMonitorSLAAcceptsDeactivationAsFollowUp(t *testing.T) {
	svc, db := setupMatchingServiceTest(t, &config.MatchingConfig{SLAWindowHours: 1})
	project := seedMatchingProject(t, db, constants.InvestmentFormBond, "9.5")
	ticket := seedMatchingTicket(t, db, project.ID, models.StringArray{constants.SecurityTypeMortgage})
	investor := seedMatchingInvestor(t, db,
		models.StringArray{constants.InvestmentFormBond}, "8", "12",
		models.StringArray{constants.SecurityTypeMortgage})
	if _, err := svc.RecalculateForInvestor(investor.ID); err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}

	now := time.Now()
	trigger := models.AuditEvent{
		Action:     constants.AuditActionTicketUpdated,
		EntityType: constants.EntityTypeTicket,
		EntityID:   fmt.Sprintf("%d", ticket.ID),
		Actor:      "admin_1",
		Severity:   constants.AuditSeverityInfo,
		CreatedAt:  now.Add(-90 * time.Minute),
	}
	if err := db.Create(&trigger).Error; err != nil {
		t.Fatalf("create trigger event failed: %v", err)
	}

	// 票据关闭走失效分支，同样要产生刷新完成审计
	db.Model(&models.Ticket{}).Where("id = ?", ticket.ID).Update("status", constants.TicketStatusClosed)
	stats, err := svc.UpdateForTicket(ticket.ID)
	if err != nil {
		t.Fatalf("update for ticket failed: %v", err)
	}
	if stats.Deactivated != 1 {
		t.Fatalf("expected 1 deactivated, got: %+v", stats)
	}
	// 把刷新审计挪进触发事件的 SLA 窗口内
	if err := db.Model(&models.AuditEvent{}).
		Where("action = ? AND entity_type = ? AND entity_id = ?",
			constants.AuditActionMatchResultsUpdated, constants.EntityTypeTicket, trigger.EntityID).
		Update("created_at", now.Add(-80*time.Minute)).Error; err != nil {
		t.Fatalf("backdate follow-up event failed: %v", err)
	}

	violations, err := svc.MonitorSLA(now)
	if err != nil {
		t.Fatalf("monitor failed: %v", err)
	}
	if violations != 0 {
		t.Fatalf("expected no violation after timely deactivation, got: %d", violations)
	}
	var incidentCount int64
	db.Model(&models.SystemIncident{}).Where("source = ?", constants.IncidentSourceSLAMonitor).Count(&incidentCount)
	if incidentCount != 0 {
		t.Fatalf("expected no incident, got: %d", incidentCount)
	}
}

func TestValidateMatchesVisitsEveryRowDespiteRemovals(t *testing.T) {
	svc, db := setupMatchingServiceTest(t, nil)
	project := seedMatchingProject(t, db, constants.InvestmentFormBond, "9.5")
	ticket := seedMatchingTicket(t, db, project.ID, models.StringArray{constants.SecurityTypeMortgage})

	// 超过单批大小，且批内前段会被巡检失效
	total := validationBatchSize + 100
	archivedCount := 50
	investors := make([]models.Investor, 0, total)
	for i := 0; i < total; i++ {
		state := constants.InvestorStateActive
		if i < archivedCount {
			state = constants.InvestorStateArchived
		}
		investors = append(investors, models.Investor{
			Name:            fmt.Sprintf("Investor %05d", i),
			State:           state,
			InvestmentForms: models.StringArray{constants.InvestmentFormBond},
			YieldMin:        models.NewMoneyFromDecimal(decimal.RequireFromString("8")),
			YieldMax:        models.NewMoneyFromDecimal(decimal.RequireFromString("12")),
			SecurityTypes:   models.StringArray{constants.SecurityTypeMortgage},
		})
	}
	if err := db.CreateInBatches(&investors, 100).Error; err != nil {
		t.Fatalf("seed investors failed: %v", err)
	}
	matches := make([]models.InvestorMatchingResult, 0, total)
	for i := range investors {
		matches = append(matches, models.InvestorMatchingResult{
			InvestorID:   investors[i].ID,
			TicketID:     ticket.ID,
			MatchScore:   1.0,
			MatchQuality: constants.MatchQualityHigh,
			MatchedAttributes: models.StringArray{
				constants.MatchAttributeInvestmentForm,
				constants.MatchAttributeYield,
				constants.MatchAttributeSecurity,
			},
			IsActive: true,
		})
	}
	if err := db.CreateInBatches(&matches, 100).Error; err != nil {
		t.Fatalf("seed matches failed: %v", err)
	}

	stats, err := svc.ValidateMatches(time.Now(), "validation_run_cursor")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if stats.Checked != total {
		t.Fatalf("expected all %d rows checked, got: %d", total, stats.Checked)
	}
	if stats.Removed != archivedCount {
		t.Fatalf("expected %d removed, got: %d", archivedCount, stats.Removed)
	}

	// 批内失效不会让游标漏行，所有行都带上本轮批次ID
	var unstamped int64
	db.Model(&models.InvestorMatchingResult{}).
		Where("validation_run_id <> ?", "validation_run_cursor").Count(&unstamped)
	if unstamped != 0 {
		t.Fatalf("expected every row stamped with the run id, got %d unstamped", unstamped)
	}
}
