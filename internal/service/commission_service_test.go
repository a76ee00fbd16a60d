package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/models"
	"github.com/tipari/platform/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCommissionServiceTest(t *testing.T) (*CommissionService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:commission_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Broker{},
		&models.Project{},
		&models.Ticket{},
		&models.Reservation{},
		&models.CommissionTracking{},
		&models.CommissionFinance{},
		&models.CommissionSplitRule{},
		&models.CommissionStatusHistory{},
		&models.AuditEvent{},
		&models.SystemIncident{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	auditSvc := NewAuditService(repository.NewAuditEventRepository(db), repository.NewIncidentRepository(db))
	svc := NewCommissionService(
		repository.NewCommissionRepository(db),
		repository.NewSplitRuleRepository(db),
		auditSvc,
		NewDeadlinePolicy(nil),
	)
	return svc, db
}

func seedCommissionFixture(t *testing.T, db *gorm.DB) (*models.Reservation, *models.Ticket) {
	t.Helper()
	broker := models.Broker{
		Name:   "Test Broker",
		Email:  fmt.Sprintf("broker_%d@example.com", time.Now().UnixNano()),
		Status: constants.BrokerStatusActive,
	}
	if err := db.Create(&broker).Error; err != nil {
		t.Fatalf("create broker failed: %v", err)
	}
	project := models.Project{
		Name:           "Test Project",
		Status:         constants.ProjectStatusPublished,
		InvestmentForm: constants.InvestmentFormBond,
		YieldPA:        models.NewMoneyFromDecimal(decimal.RequireFromString("9.5")),
	}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("create project failed: %v", err)
	}
	ticket := models.Ticket{
		ProjectID:             project.ID,
		Status:                constants.TicketStatusReserved,
		MinInvestmentAmount:   models.NewMoneyFromDecimal(decimal.RequireFromString("4000000")),
		CommissionRatePercent: 5,
		SecurityTypes:         models.StringArray{constants.SecurityTypeMortgage},
	}
	if err := db.Create(&ticket).Error; err != nil {
		t.Fatalf("create ticket failed: %v", err)
	}
	reservation := models.Reservation{
		ReservationNo: fmt.Sprintf("RSV%d", time.Now().UnixNano()),
		TicketID:      ticket.ID,
		BrokerID:      broker.ID,
		State:         constants.ReservationStateActive,
		ExpiresAt:     time.Now().AddDate(0, 0, 30),
	}
	if err := db.Create(&reservation).Error; err != nil {
		t.Fatalf("create reservation failed: %v", err)
	}
	return &reservation, &ticket
}

func createTestCommission(t *testing.T, svc *CommissionService, db *gorm.DB, reservation *models.Reservation, ticket *models.Ticket, now time.Time) *models.CommissionTracking {
	t.Helper()
	var tracking *models.CommissionTracking
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		tracking, err = svc.CreateForReservationTx(tx, reservation, ticket, now)
		return err
	})
	if err != nil {
		t.Fatalf("create commission failed: %v", err)
	}
	return tracking
}

func TestCommissionCreatedExactlyOncePerReservation(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	reservation, ticket := seedCommissionFixture(t, db)
	now := time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC)

	first := createTestCommission(t, svc, db, reservation, ticket, now)
	if first.ID == 0 {
		t.Fatalf("invalid tracking id")
	}
	if got := first.CommissionAmount.Decimal.StringFixed(2); got != "200000.00" {
		t.Fatalf("expected amount 200000.00, got: %s", got)
	}
	if first.Status != constants.CommissionStatusPending {
		t.Fatalf("expected pending status, got: %s", first.Status)
	}
	if first.EntitlementPhase != constants.EntitlementPhaseNegotiation {
		t.Fatalf("expected negotiation phase, got: %s", first.EntitlementPhase)
	}
	if first.Collectability != constants.CollectabilityNotCollectable {
		t.Fatalf("expected not_collectable, got: %s", first.Collectability)
	}
	if first.NegotiationDeadline == nil || !first.NegotiationDeadline.Equal(now.AddDate(0, 0, 90)) {
		t.Fatalf("expected negotiation deadline 90 days out, got: %v", first.NegotiationDeadline)
	}

	// 激活事件重放：再次创建命中唯一索引，返回已存在记录
	replay := createTestCommission(t, svc, db, reservation, ticket, now.Add(time.Hour))
	if replay.ID != first.ID {
		t.Fatalf("expected replay to return commission %d, got: %d", first.ID, replay.ID)
	}

	var count int64
	db.Model(&models.CommissionTracking{}).Where("reservation_id = ?", reservation.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one commission, got: %d", count)
	}
	var financeCount int64
	db.Model(&models.CommissionFinance{}).Where("commission_id = ?", first.ID).Count(&financeCount)
	if financeCount != 1 {
		t.Fatalf("expected exactly one finance row, got: %d", financeCount)
	}
}

func TestCommissionLifecycleHappyPath(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	reservation, ticket := seedCommissionFixture(t, db)
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	tracking := createTestCommission(t, svc, db, reservation, ticket, now)

	confirmAt := now.AddDate(0, 0, 10)
	if err := svc.ConfirmInvestment(tracking.ID, "admin_1", confirmAt); err != nil {
		t.Fatalf("confirm investment failed: %v", err)
	}
	reloaded, err := svc.GetByID(tracking.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Status != constants.CommissionStatusEntitled {
		t.Fatalf("expected entitled, got: %s", reloaded.Status)
	}
	if reloaded.EntitlementPhase != constants.EntitlementPhasePlatformEntitled {
		t.Fatalf("expected platform_entitled, got: %s", reloaded.EntitlementPhase)
	}
	if reloaded.Collectability != constants.CollectabilityCollectable {
		t.Fatalf("expected collectable, got: %s", reloaded.Collectability)
	}
	if reloaded.PlatformPaymentDeadline == nil || !reloaded.PlatformPaymentDeadline.Equal(confirmAt.AddDate(0, 0, 30)) {
		t.Fatalf("expected platform payment deadline 30 days out, got: %v", reloaded.PlatformPaymentDeadline)
	}
	if reloaded.WaitingOn != constants.WaitingOnPlatform {
		t.Fatalf("expected waiting on platform, got: %s", reloaded.WaitingOn)
	}

	paidAt := confirmAt.AddDate(0, 0, 5)
	if err := svc.MarkPlatformPaid(tracking.ID, "admin_1", paidAt); err != nil {
		t.Fatalf("mark platform paid failed: %v", err)
	}
	reloaded, _ = svc.GetByID(tracking.ID)
	if reloaded.EntitlementPhase != constants.EntitlementPhasePlatformPaid {
		t.Fatalf("expected platform_paid, got: %s", reloaded.EntitlementPhase)
	}
	if reloaded.BrokerPayoutDeadline == nil || !reloaded.BrokerPayoutDeadline.Equal(paidAt.AddDate(0, 0, 3)) {
		t.Fatalf("expected broker payout deadline 3 days out, got: %v", reloaded.BrokerPayoutDeadline)
	}
	if reloaded.WaitingOn != constants.WaitingOnBroker {
		t.Fatalf("expected waiting on broker, got: %s", reloaded.WaitingOn)
	}

	if err := svc.MarkBrokerPayable(tracking.ID, "admin_1", paidAt.Add(time.Hour)); err != nil {
		t.Fatalf("mark broker payable failed: %v", err)
	}
	settledAt := paidAt.AddDate(0, 0, 1)
	if err := svc.MarkPaid(tracking.ID, "admin_1", settledAt); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	reloaded, _ = svc.GetByID(tracking.ID)
	if reloaded.Status != constants.CommissionStatusPaid {
		t.Fatalf("expected paid, got: %s", reloaded.Status)
	}
	if reloaded.EntitlementPhase != constants.EntitlementPhaseSettled {
		t.Fatalf("expected settled, got: %s", reloaded.EntitlementPhase)
	}
	if reloaded.PaidAt == nil || !reloaded.PaidAt.Equal(settledAt) {
		t.Fatalf("expected paid_at %s, got: %v", settledAt, reloaded.PaidAt)
	}
	if reloaded.WaitingOn != constants.WaitingOnNone {
		t.Fatalf("expected waiting on none, got: %s", reloaded.WaitingOn)
	}

	history, err := svc.ListHistory(tracking.ID)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("expected 5 history rows, got: %d", len(history))
	}
}

func TestCommissionPhaseGuards(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	reservation, ticket := seedCommissionFixture(t, db)
	now := time.Now()
	tracking := createTestCommission(t, svc, db, reservation, ticket, now)

	// 谈判阶段不允许跳级
	if err := svc.MarkPlatformPaid(tracking.ID, "admin_1", now); !errors.Is(err, ErrCommissionPhaseInvalid) {
		t.Fatalf("expected ErrCommissionPhaseInvalid, got: %v", err)
	}
	if err := svc.MarkPaid(tracking.ID, "admin_1", now); !errors.Is(err, ErrCommissionPhaseInvalid) {
		t.Fatalf("expected ErrCommissionPhaseInvalid, got: %v", err)
	}

	if err := svc.ConfirmInvestment(tracking.ID, "admin_1", now); err != nil {
		t.Fatalf("confirm investment failed: %v", err)
	}
	// 重复确认被拒绝，状态已离开谈判阶段
	if err := svc.ConfirmInvestment(tracking.ID, "admin_1", now); !errors.Is(err, ErrCommissionPhaseInvalid) {
		t.Fatalf("expected ErrCommissionPhaseInvalid on replayed confirm, got: %v", err)
	}
}

func TestCommissionWriteOffValidation(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	reservation, ticket := seedCommissionFixture(t, db)
	tracking := createTestCommission(t, svc, db, reservation, ticket, time.Now())

	longReason := strings.Repeat("unreachable developer, legal counsel advised closure. ", 2)

	if err := svc.WriteOff(tracking.ID, "", longReason); !errors.Is(err, ErrWriteOffAdminOnly) {
		t.Fatalf("expected ErrWriteOffAdminOnly for empty actor, got: %v", err)
	}
	if err := svc.WriteOff(tracking.ID, constants.ActorSystem, longReason); !errors.Is(err, ErrWriteOffAdminOnly) {
		t.Fatalf("expected ErrWriteOffAdminOnly for system actor, got: %v", err)
	}
	if err := svc.WriteOff(tracking.ID, "admin_1", "too short"); !errors.Is(err, ErrWriteOffReasonTooShort) {
		t.Fatalf("expected ErrWriteOffReasonTooShort, got: %v", err)
	}
	// 63 字节但只有 21 个字符，按字符数计仍然过短
	multibyteReason := strings.Repeat("无法联系开发商", 3)
	if err := svc.WriteOff(tracking.ID, "admin_1", multibyteReason); !errors.Is(err, ErrWriteOffReasonTooShort) {
		t.Fatalf("expected ErrWriteOffReasonTooShort for multibyte reason, got: %v", err)
	}
	if err := svc.WriteOff(tracking.ID, "admin_1", longReason); !errors.Is(err, ErrWriteOffInvalidState) {
		t.Fatalf("expected ErrWriteOffInvalidState, got: %v", err)
	}

	// 校验失败不落任何变更
	reloaded, _ := svc.GetByID(tracking.ID)
	if reloaded.Status != constants.CommissionStatusPending {
		t.Fatalf("expected status unchanged, got: %s", reloaded.Status)
	}
	if reloaded.TerminationReason != "" {
		t.Fatalf("expected no termination reason, got: %s", reloaded.TerminationReason)
	}

	if err := db.Model(&models.CommissionTracking{}).Where("id = ?", tracking.ID).
		Update("collectability", constants.CollectabilityInCollection).Error; err != nil {
		t.Fatalf("prepare in_collection failed: %v", err)
	}
	if err := svc.WriteOff(tracking.ID, "admin_1", longReason); err != nil {
		t.Fatalf("write off failed: %v", err)
	}
	reloaded, _ = svc.GetByID(tracking.ID)
	if reloaded.Status != constants.CommissionStatusWrittenOff {
		t.Fatalf("expected written_off status, got: %s", reloaded.Status)
	}
	if reloaded.Collectability != constants.CollectabilityWrittenOff {
		t.Fatalf("expected written_off collectability, got: %s", reloaded.Collectability)
	}
	if reloaded.TerminationReason != constants.TerminationReasonWrittenOff {
		t.Fatalf("expected written_off termination reason, got: %s", reloaded.TerminationReason)
	}

	var audit models.AuditEvent
	if err := db.Where("action = ?", constants.AuditActionCommissionWrittenOff).First(&audit).Error; err != nil {
		t.Fatalf("expected write-off audit event: %v", err)
	}
	if audit.Severity != constants.AuditSeverityHigh {
		t.Fatalf("expected high severity audit, got: %s", audit.Severity)
	}
	if audit.Actor != "admin_1" {
		t.Fatalf("expected actor admin_1, got: %s", audit.Actor)
	}
}

func TestCommissionSplitRulePriority(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	reservation, ticket := seedCommissionFixture(t, db)
	tracking := createTestCommission(t, svc, db, reservation, ticket, time.Now())

	// 无任何规则时落到内置兜底比例，split_rule_id 留空
	finance, err := svc.CalculateSplit(tracking.ID, "admin_1")
	if err != nil {
		t.Fatalf("calculate split failed: %v", err)
	}
	if finance.SplitStatus != constants.SplitStatusCalculated {
		t.Fatalf("expected calculated, got: %s", finance.SplitStatus)
	}
	if finance.PlatformFeePercent != constants.FallbackPlatformFeePercent ||
		finance.OriginBrokerPercent != constants.FallbackOriginBrokerPercent ||
		finance.ReservationBrokerPercent != constants.FallbackReservationBrokerPercent {
		t.Fatalf("expected fallback percents, got: %d/%d/%d",
			finance.PlatformFeePercent, finance.OriginBrokerPercent, finance.ReservationBrokerPercent)
	}
	if finance.SplitRuleID != nil {
		t.Fatalf("expected no split rule id for fallback, got: %v", finance.SplitRuleID)
	}
	if got := finance.PlatformFeeAmount.Decimal.StringFixed(2); got != "20000.00" {
		t.Fatalf("expected platform amount 20000.00, got: %s", got)
	}
	if got := finance.OriginBrokerAmount.Decimal.StringFixed(2); got != "80000.00" {
		t.Fatalf("expected origin amount 80000.00, got: %s", got)
	}
	if got := finance.ReservationBrokerAmount.Decimal.StringFixed(2); got != "100000.00" {
		t.Fatalf("expected reservation amount 100000.00, got: %s", got)
	}

	// 全局默认规则优先于兜底
	global, err := svc.CreateSplitRule(CreateSplitRuleInput{
		Name:                     "global 2026",
		Scope:                    constants.SplitRuleScopeGlobalDefault,
		PlatformFeePercent:       20,
		OriginBrokerPercent:      40,
		ReservationBrokerPercent: 40,
		CreatedBy:                "admin_1",
	})
	if err != nil {
		t.Fatalf("create global rule failed: %v", err)
	}
	finance, err = svc.CalculateSplit(tracking.ID, "admin_1")
	if err != nil {
		t.Fatalf("recalculate split failed: %v", err)
	}
	if finance.PlatformFeePercent != 20 {
		t.Fatalf("expected global rule percents, got platform: %d", finance.PlatformFeePercent)
	}
	if finance.SplitRuleID == nil || *finance.SplitRuleID != global.ID {
		t.Fatalf("expected split rule id %d, got: %v", global.ID, finance.SplitRuleID)
	}

	// 项目级覆盖优先于全局默认
	override, err := svc.CreateSplitRule(CreateSplitRuleInput{
		Name:                     "project override",
		Scope:                    constants.SplitRuleScopeProjectOverride,
		ProjectID:                ticket.ProjectID,
		PlatformFeePercent:       30,
		OriginBrokerPercent:      30,
		ReservationBrokerPercent: 40,
		CreatedBy:                "admin_1",
	})
	if err != nil {
		t.Fatalf("create override rule failed: %v", err)
	}
	finance, err = svc.CalculateSplit(tracking.ID, "admin_1")
	if err != nil {
		t.Fatalf("recalculate split failed: %v", err)
	}
	if finance.PlatformFeePercent != 30 || finance.OriginBrokerPercent != 30 {
		t.Fatalf("expected override percents, got: %d/%d", finance.PlatformFeePercent, finance.OriginBrokerPercent)
	}
	if finance.SplitRuleID == nil || *finance.SplitRuleID != override.ID {
		t.Fatalf("expected split rule id %d, got: %v", override.ID, finance.SplitRuleID)
	}

	// 停用覆盖后回到全局默认
	if err := svc.DeactivateSplitRule(override.ID); err != nil {
		t.Fatalf("deactivate override failed: %v", err)
	}
	finance, err = svc.CalculateSplit(tracking.ID, "admin_1")
	if err != nil {
		t.Fatalf("recalculate split failed: %v", err)
	}
	if finance.SplitRuleID == nil || *finance.SplitRuleID != global.ID {
		t.Fatalf("expected fallback to global rule %d, got: %v", global.ID, finance.SplitRuleID)
	}
}

func TestCommissionSplitLock(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	reservation, ticket := seedCommissionFixture(t, db)
	tracking := createTestCommission(t, svc, db, reservation, ticket, time.Now())

	if err := svc.LockSplit(tracking.ID, "admin_1"); !errors.Is(err, ErrSplitNotCalculated) {
		t.Fatalf("expected ErrSplitNotCalculated, got: %v", err)
	}
	if _, err := svc.CalculateSplit(tracking.ID, "admin_1"); err != nil {
		t.Fatalf("calculate split failed: %v", err)
	}
	if err := svc.LockSplit(tracking.ID, "admin_1"); err != nil {
		t.Fatalf("lock split failed: %v", err)
	}
	if err := svc.LockSplit(tracking.ID, "admin_1"); !errors.Is(err, ErrSplitLocked) {
		t.Fatalf("expected ErrSplitLocked on relock, got: %v", err)
	}
	if _, err := svc.CalculateSplit(tracking.ID, "admin_1"); !errors.Is(err, ErrSplitLocked) {
		t.Fatalf("expected ErrSplitLocked on recalculate, got: %v", err)
	}

	finance, err := svc.repo.GetFinanceByCommissionID(tracking.ID)
	if err != nil || finance == nil {
		t.Fatalf("reload finance failed: %v", err)
	}
	if finance.SplitStatus != constants.SplitStatusLocked {
		t.Fatalf("expected locked, got: %s", finance.SplitStatus)
	}
	if finance.LockedAt == nil {
		t.Fatalf("expected locked_at set")
	}
}

func TestCommissionSplitRuleValidation(t *testing.T) {
	svc, _ := setupCommissionServiceTest(t)

	if _, err := svc.CreateSplitRule(CreateSplitRuleInput{
		Name:                     "broken",
		Scope:                    constants.SplitRuleScopeGlobalDefault,
		PlatformFeePercent:       10,
		OriginBrokerPercent:      40,
		ReservationBrokerPercent: 40,
	}); !errors.Is(err, ErrInvalidSplitSum) {
		t.Fatalf("expected ErrInvalidSplitSum, got: %v", err)
	}
	if _, err := svc.CreateSplitRule(CreateSplitRuleInput{
		Name:                     "override without project",
		Scope:                    constants.SplitRuleScopeProjectOverride,
		PlatformFeePercent:       10,
		OriginBrokerPercent:      40,
		ReservationBrokerPercent: 50,
	}); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got: %v", err)
	}
}

func TestCommissionDeadlineSweep(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	now := time.Now()

	// 谈判超时：终止原因一次性写入
	reservation1, ticket1 := seedCommissionFixture(t, db)
	expired := createTestCommission(t, svc, db, reservation1, ticket1, now.AddDate(0, 0, -120))

	// 平台收款超时：collectable 转入催收
	reservation2, ticket2 := seedCommissionFixture(t, db)
	overdue := createTestCommission(t, svc, db, reservation2, ticket2, now.AddDate(0, 0, -60))
	if err := svc.ConfirmInvestment(overdue.ID, "admin_1", now.AddDate(0, 0, -45)); err != nil {
		t.Fatalf("confirm investment failed: %v", err)
	}

	stats, err := svc.SweepDeadlines(now, "run_test_1")
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if stats.NegotiationExpired != 1 {
		t.Fatalf("expected 1 negotiation expiry, got: %d", stats.NegotiationExpired)
	}
	if stats.MovedToCollection != 1 {
		t.Fatalf("expected 1 moved to collection, got: %d", stats.MovedToCollection)
	}
	if stats.Failed != 0 {
		t.Fatalf("expected no failures, got: %d", stats.Failed)
	}

	reloaded, _ := svc.GetByID(expired.ID)
	if reloaded.TerminationReason != constants.TerminationReasonNegotiationExpired {
		t.Fatalf("expected negotiation_expired reason, got: %s", reloaded.TerminationReason)
	}
	if reloaded.WaitingOn != constants.WaitingOnNone {
		t.Fatalf("expected waiting on none, got: %s", reloaded.WaitingOn)
	}
	reloaded, _ = svc.GetByID(overdue.ID)
	if reloaded.Collectability != constants.CollectabilityInCollection {
		t.Fatalf("expected in_collection, got: %s", reloaded.Collectability)
	}

	// 巡检幂等：重复执行不再产生变更
	stats, err = svc.SweepDeadlines(now, "run_test_2")
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if stats.NegotiationExpired != 0 || stats.MovedToCollection != 0 {
		t.Fatalf("expected idempotent sweep, got: %+v", stats)
	}

	var audit models.AuditEvent
	if err := db.Where("action = ? AND run_id = ?", constants.AuditActionCommissionPaymentOverdue, "run_test_1").First(&audit).Error; err != nil {
		t.Fatalf("expected payment overdue audit event: %v", err)
	}
}
