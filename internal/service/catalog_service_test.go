package service

import (
	"errors"
	"fmt"
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

func setupCatalogServiceTest(t *testing.T) (*CatalogService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:catalog_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Broker{},
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
	auditService := NewAuditService(auditRepo, incidentRepo)
	matchingService := NewMatchingService(
		repository.NewMatchingRepository(db),
		repository.NewInvestorRepository(db),
		repository.NewTicketRepository(db),
		auditService,
		NewIncidentService(incidentRepo),
		auditRepo,
		nil,
		&config.MatchingConfig{},
	)
	svc := NewCatalogService(
		repository.NewBrokerRepository(db),
		repository.NewProjectRepository(db),
		repository.NewTicketRepository(db),
		repository.NewInvestorRepository(db),
		auditService,
		matchingService,
	)
	return svc, db
}

func money(t *testing.T, value string) models.Money {
	t.Helper()
	return models.NewMoneyFromDecimal(decimal.RequireFromString(value))
}

func createCatalogProject(t *testing.T, svc *CatalogService, form, yield string) *models.Project {
	t.Helper()
	project, err := svc.CreateProject(CreateProjectInput{
		Name:           fmt.Sprintf("Project %d", time.Now().UnixNano()),
		InvestmentForm: form,
		YieldPA:        money(t, yield),
	})
	if err != nil {
		t.Fatalf("create project failed: %v", err)
	}
	return project
}

func TestCreateProjectValidation(t *testing.T) {
	svc, _ := setupCatalogServiceTest(t)

	project := createCatalogProject(t, svc, constants.InvestmentFormBond, "9.5")
	if project.Status != constants.ProjectStatusDraft {
		t.Fatalf("expected new project in draft, got: %s", project.Status)
	}

	if _, err := svc.CreateProject(CreateProjectInput{
		Name:           "Bad form",
		InvestmentForm: "crypto",
		YieldPA:        money(t, "9.5"),
	}); !errors.Is(err, ErrInvestmentFormInvalid) {
		t.Fatalf("expected ErrInvestmentFormInvalid, got: %v", err)
	}
}

func TestPublishProjectIdempotent(t *testing.T) {
	svc, db := setupCatalogServiceTest(t)
	project := createCatalogProject(t, svc, constants.InvestmentFormLoan, "11")

	published, err := svc.PublishProject(project.ID, "admin_1")
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if published.Status != constants.ProjectStatusPublished {
		t.Fatalf("expected published, got: %s", published.Status)
	}
	if published.PublishedAt == nil {
		t.Fatalf("expected published_at set")
	}

	// 重复发布不再产生审计
	if _, err := svc.PublishProject(project.ID, "admin_1"); err != nil {
		t.Fatalf("second publish failed: %v", err)
	}
	var auditCount int64
	db.Model(&models.AuditEvent{}).Where("action = ?", constants.AuditActionProjectPublished).Count(&auditCount)
	if auditCount != 1 {
		t.Fatalf("expected exactly 1 publish audit, got: %d", auditCount)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	svc, _ := setupCatalogServiceTest(t)
	project := createCatalogProject(t, svc, constants.InvestmentFormBond, "9.5")

	ticket, err := svc.CreateTicket(CreateTicketInput{
		ProjectID:             project.ID,
		MinInvestmentAmount:   money(t, "1000000"),
		CommissionRatePercent: 5,
		SecurityTypes:         []string{constants.SecurityTypeMortgage, constants.SecurityTypeGuarantee},
	})
	if err != nil {
		t.Fatalf("create ticket failed: %v", err)
	}
	if ticket.Status != constants.TicketStatusAvailable {
		t.Fatalf("expected new ticket available, got: %s", ticket.Status)
	}
	if len(ticket.SecurityTypes) != 2 {
		t.Fatalf("expected 2 security types, got: %v", ticket.SecurityTypes)
	}

	cases := []struct {
		name    string
		input   CreateTicketInput
		wantErr error
	}{
		{"missing project", CreateTicketInput{ProjectID: 999, CommissionRatePercent: 5}, ErrProjectNotFound},
		{"rate above 100", CreateTicketInput{ProjectID: project.ID, CommissionRatePercent: 101}, ErrPercentOutOfRange},
		{"negative rate", CreateTicketInput{ProjectID: project.ID, CommissionRatePercent: -1}, ErrPercentOutOfRange},
		{"unknown security type", CreateTicketInput{ProjectID: project.ID, CommissionRatePercent: 5, SecurityTypes: []string{"car"}}, ErrSecurityTypeInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateTicket(tc.input); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateInvestorValidation(t *testing.T) {
	svc, _ := setupCatalogServiceTest(t)

	investor, err := svc.CreateInvestor(CreateInvestorInput{
		Name:            "Invest Group Alfa",
		InvestmentForms: []string{constants.InvestmentFormBond, constants.InvestmentFormLoan},
		YieldMin:        money(t, "8"),
		YieldMax:        money(t, "12"),
		SecurityTypes:   []string{constants.SecurityTypeMortgage},
	})
	if err != nil {
		t.Fatalf("create investor failed: %v", err)
	}
	if investor.State != constants.InvestorStateActive {
		t.Fatalf("expected active investor, got: %s", investor.State)
	}

	if _, err := svc.CreateInvestor(CreateInvestorInput{
		Name:            "Bad form",
		InvestmentForms: []string{"crypto"},
		YieldMin:        money(t, "8"),
		YieldMax:        money(t, "12"),
	}); !errors.Is(err, ErrInvestmentFormInvalid) {
		t.Fatalf("expected ErrInvestmentFormInvalid, got: %v", err)
	}
	if _, err := svc.CreateInvestor(CreateInvestorInput{
		Name:            "Inverted range",
		InvestmentForms: []string{constants.InvestmentFormBond},
		YieldMin:        money(t, "12"),
		YieldMax:        money(t, "8"),
	}); !errors.Is(err, ErrYieldRangeInvalid) {
		t.Fatalf("expected ErrYieldRangeInvalid, got: %v", err)
	}
	if _, err := svc.CreateInvestor(CreateInvestorInput{
		Name:            "Bad security",
		InvestmentForms: []string{constants.InvestmentFormBond},
		YieldMin:        money(t, "8"),
		YieldMax:        money(t, "12"),
		SecurityTypes:   []string{"car"},
	}); !errors.Is(err, ErrSecurityTypeInvalid) {
		t.Fatalf("expected ErrSecurityTypeInvalid, got: %v", err)
	}
}

func TestCreateInvestorTriggersInlineMatching(t *testing.T) {
	svc, db := setupCatalogServiceTest(t)
	project := createCatalogProject(t, svc, constants.InvestmentFormBond, "9.5")
	if _, err := svc.PublishProject(project.ID, "admin_1"); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	ticket, err := svc.CreateTicket(CreateTicketInput{
		ProjectID:             project.ID,
		MinInvestmentAmount:   money(t, "500000"),
		CommissionRatePercent: 4,
		SecurityTypes:         []string{constants.SecurityTypeMortgage},
	})
	if err != nil {
		t.Fatalf("create ticket failed: %v", err)
	}

	investor, err := svc.CreateInvestor(CreateInvestorInput{
		Name:            "Kapital Morava",
		InvestmentForms: []string{constants.InvestmentFormBond},
		YieldMin:        money(t, "8"),
		YieldMax:        money(t, "12"),
		SecurityTypes:   []string{constants.SecurityTypeMortgage},
	})
	if err != nil {
		t.Fatalf("create investor failed: %v", err)
	}

	// 队列未启用时创建即同步算出匹配
	var match models.InvestorMatchingResult
	if err := db.Where("investor_id = ? AND ticket_id = ?", investor.ID, ticket.ID).First(&match).Error; err != nil {
		t.Fatalf("expected inline match created: %v", err)
	}
	if !match.IsActive {
		t.Fatalf("expected match active")
	}
	if match.MatchQuality != constants.MatchQualityHigh {
		t.Fatalf("expected high quality, got: %s", match.MatchQuality)
	}
}

func TestUpdateInvestorPartialUpdates(t *testing.T) {
	svc, db := setupCatalogServiceTest(t)
	investor, err := svc.CreateInvestor(CreateInvestorInput{
		Name:            "Rodinny fond Praha",
		InvestmentForms: []string{constants.InvestmentFormBond},
		YieldMin:        money(t, "8"),
		YieldMax:        money(t, "12"),
		SecurityTypes:   []string{constants.SecurityTypeMortgage},
	})
	if err != nil {
		t.Fatalf("create investor failed: %v", err)
	}

	// 仅调上限，其余字段保持不变
	newMax := money(t, "15")
	updated, err := svc.UpdateInvestor(investor.ID, UpdateInvestorInput{YieldMax: &newMax, Actor: "admin_1"})
	if err != nil {
		t.Fatalf("update investor failed: %v", err)
	}
	if !updated.YieldMax.Decimal.Equal(decimal.RequireFromString("15")) {
		t.Fatalf("expected yield max 15, got: %s", updated.YieldMax.Decimal)
	}
	if !updated.YieldMin.Decimal.Equal(decimal.RequireFromString("8")) {
		t.Fatalf("expected yield min untouched, got: %s", updated.YieldMin.Decimal)
	}
	if len(updated.InvestmentForms) != 1 {
		t.Fatalf("expected investment forms untouched, got: %v", updated.InvestmentForms)
	}

	// 组合校验用更新后的值：仅改下限到 20 会倒挂
	badMin := money(t, "20")
	if _, err := svc.UpdateInvestor(investor.ID, UpdateInvestorInput{YieldMin: &badMin}); !errors.Is(err, ErrYieldRangeInvalid) {
		t.Fatalf("expected ErrYieldRangeInvalid, got: %v", err)
	}

	badState := "frozen"
	if _, err := svc.UpdateInvestor(investor.ID, UpdateInvestorInput{State: &badState}); !errors.Is(err, ErrInvestorNotFound) {
		t.Fatalf("expected invalid state rejected, got: %v", err)
	}

	// 空更新为幂等空操作，不产生审计
	var before int64
	db.Model(&models.AuditEvent{}).Where("action = ?", constants.AuditActionInvestorUpdated).Count(&before)
	if _, err := svc.UpdateInvestor(investor.ID, UpdateInvestorInput{}); err != nil {
		t.Fatalf("empty update failed: %v", err)
	}
	var after int64
	db.Model(&models.AuditEvent{}).Where("action = ?", constants.AuditActionInvestorUpdated).Count(&after)
	if after != before {
		t.Fatalf("expected no audit for empty update, got %d -> %d", before, after)
	}
}

func TestChangeTicketStatusIdempotent(t *testing.T) {
	svc, db := setupCatalogServiceTest(t)
	project := createCatalogProject(t, svc, constants.InvestmentFormBond, "9.5")
	if _, err := svc.PublishProject(project.ID, "admin_1"); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	ticket, err := svc.CreateTicket(CreateTicketInput{
		ProjectID:             project.ID,
		MinInvestmentAmount:   money(t, "1000000"),
		CommissionRatePercent: 5,
		SecurityTypes:         []string{constants.SecurityTypeMortgage},
	})
	if err != nil {
		t.Fatalf("create ticket failed: %v", err)
	}

	changed, err := svc.ChangeTicketStatus(ticket.ID, constants.TicketStatusClosed, "admin_1")
	if err != nil {
		t.Fatalf("change status failed: %v", err)
	}
	if changed.Status != constants.TicketStatusClosed {
		t.Fatalf("expected closed, got: %s", changed.Status)
	}

	var before int64
	db.Model(&models.AuditEvent{}).Where("action = ?", constants.AuditActionTicketUpdated).Count(&before)
	if _, err := svc.ChangeTicketStatus(ticket.ID, constants.TicketStatusClosed, "admin_1"); err != nil {
		t.Fatalf("repeated change failed: %v", err)
	}
	var after int64
	db.Model(&models.AuditEvent{}).Where("action = ?", constants.AuditActionTicketUpdated).Count(&after)
	if after != before {
		t.Fatalf("expected same-status change to be a no-op, got %d -> %d", before, after)
	}

	if _, err := svc.ChangeTicketStatus(ticket.ID, "frozen", "admin_1"); err == nil {
		t.Fatalf("expected unknown status rejected")
	}
}

func TestCreateAndGetBroker(t *testing.T) {
	svc, _ := setupCatalogServiceTest(t)
	broker, err := svc.CreateBroker("  Jana Novotna  ", fmt.Sprintf("jana_%d@tipari.cz", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("create broker failed: %v", err)
	}
	if broker.Name != "Jana Novotna" {
		t.Fatalf("expected trimmed name, got: %q", broker.Name)
	}
	if broker.Status != constants.BrokerStatusActive {
		t.Fatalf("expected active broker, got: %s", broker.Status)
	}

	got, err := svc.GetBroker(broker.ID)
	if err != nil {
		t.Fatalf("get broker failed: %v", err)
	}
	if got.ID != broker.ID {
		t.Fatalf("expected broker %d, got: %d", broker.ID, got.ID)
	}
	if _, err := svc.GetBroker(999); !errors.Is(err, ErrBrokerNotFound) {
		t.Fatalf("expected ErrBrokerNotFound, got: %v", err)
	}
}
