package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/logger"
	"github.com/tipari/platform/internal/models"
	"github.com/tipari/platform/internal/repository"
)

var validInvestmentForms = map[string]bool{
	constants.InvestmentFormBond:        true,
	constants.InvestmentFormLoan:        true,
	constants.InvestmentFormEquity:      true,
	constants.InvestmentFormConvertible: true,
}

var validSecurityTypes = map[string]bool{
	constants.SecurityTypeMortgage:       true,
	constants.SecurityTypeGuarantee:      true,
	constants.SecurityTypeBillOfExchange: true,
	constants.SecurityTypeNone:           true,
}

var validTicketStatuses = map[string]bool{
	constants.TicketStatusAvailable: true,
	constants.TicketStatusReserved:  true,
	constants.TicketStatusCompleted: true,
	constants.TicketStatusClosed:    true,
}

// CatalogService 经纪人、项目、票据与投资人的基础维护服务。
//
// 票据与投资人的变更会联动触发匹配刷新。
type CatalogService struct {
	brokerRepo      repository.BrokerRepository
	projectRepo     repository.ProjectRepository
	ticketRepo      repository.TicketRepository
	investorRepo    repository.InvestorRepository
	auditService    *AuditService
	matchingService *MatchingService
}

// NewCatalogService 创建基础维护服务
func NewCatalogService(
	brokerRepo repository.BrokerRepository,
	projectRepo repository.ProjectRepository,
	ticketRepo repository.TicketRepository,
	investorRepo repository.InvestorRepository,
	auditService *AuditService,
	matchingService *MatchingService,
) *CatalogService {
	return &CatalogService{
		brokerRepo:      brokerRepo,
		projectRepo:     projectRepo,
		ticketRepo:      ticketRepo,
		investorRepo:    investorRepo,
		auditService:    auditService,
		matchingService: matchingService,
	}
}

// CreateBroker 创建经纪人
func (s *CatalogService) CreateBroker(name, email string) (*models.Broker, error) {
	broker := &models.Broker{
		Name:   strings.TrimSpace(name),
		Email:  strings.TrimSpace(email),
		Status: constants.BrokerStatusActive,
	}
	if err := s.brokerRepo.Create(broker); err != nil {
		return nil, err
	}
	return broker, nil
}

// GetBroker 获取经纪人
func (s *CatalogService) GetBroker(id uint) (*models.Broker, error) {
	broker, err := s.brokerRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if broker == nil {
		return nil, ErrBrokerNotFound
	}
	return broker, nil
}

// CreateProjectInput 创建项目输入
type CreateProjectInput struct {
	Name           string
	InvestmentForm string
	YieldPA        models.Money
}

// CreateProject 创建项目（草稿态）
func (s *CatalogService) CreateProject(input CreateProjectInput) (*models.Project, error) {
	form := strings.TrimSpace(input.InvestmentForm)
	if !validInvestmentForms[form] {
		return nil, ErrInvestmentFormInvalid
	}
	project := &models.Project{
		Name:           strings.TrimSpace(input.Name),
		Status:         constants.ProjectStatusDraft,
		InvestmentForm: form,
		YieldPA:        input.YieldPA,
	}
	if err := s.projectRepo.Create(project); err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject 获取项目
func (s *CatalogService) GetProject(id uint) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

// PublishProject 发布项目，使其票据可被预约与匹配
func (s *CatalogService) PublishProject(id uint, actor string) (*models.Project, error) {
	project, err := s.GetProject(id)
	if err != nil {
		return nil, err
	}
	if project.Status == constants.ProjectStatusPublished {
		return project, nil
	}
	now := time.Now()
	if err := s.projectRepo.UpdateFields(id, map[string]interface{}{
		"status":       constants.ProjectStatusPublished,
		"published_at": now,
	}); err != nil {
		return nil, err
	}
	if err := s.auditService.Record(AuditRecordInput{
		Action:     constants.AuditActionProjectPublished,
		EntityType: constants.EntityTypeProject,
		EntityID:   strconv.FormatUint(uint64(id), 10),
		Actor:      actor,
		OldState:   project.Status,
		NewState:   constants.ProjectStatusPublished,
	}); err != nil {
		return nil, err
	}
	project.Status = constants.ProjectStatusPublished
	project.PublishedAt = &now
	return project, nil
}

// CreateTicketInput 创建票据输入
type CreateTicketInput struct {
	ProjectID             uint
	MinInvestmentAmount   models.Money
	CommissionRatePercent int
	SecurityTypes         []string
}

// CreateTicket 创建票据
func (s *CatalogService) CreateTicket(input CreateTicketInput) (*models.Ticket, error) {
	project, err := s.GetProject(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if input.CommissionRatePercent < 0 || input.CommissionRatePercent > 100 {
		return nil, ErrPercentOutOfRange
	}
	securityTypes, err := normalizeSecurityTypes(input.SecurityTypes)
	if err != nil {
		return nil, err
	}
	ticket := &models.Ticket{
		ProjectID:             project.ID,
		Status:                constants.TicketStatusAvailable,
		MinInvestmentAmount:   input.MinInvestmentAmount,
		CommissionRatePercent: input.CommissionRatePercent,
		SecurityTypes:         securityTypes,
	}
	if err := s.ticketRepo.Create(ticket); err != nil {
		return nil, err
	}
	s.triggerTicket(ticket.ID)
	return ticket, nil
}

// GetTicket 获取票据
func (s *CatalogService) GetTicket(id uint) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.GetByIDWithProject(id)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	return ticket, nil
}

// ListAvailableTickets 查询已发布项目下可预约的票据
func (s *CatalogService) ListAvailableTickets() ([]models.Ticket, error) {
	return s.ticketRepo.ListAvailableOfPublishedProjects()
}

// ListTicketsForAdmin 管理端查询票据列表
func (s *CatalogService) ListTicketsForAdmin(filter repository.TicketListFilter) ([]models.Ticket, int64, error) {
	return s.ticketRepo.List(filter)
}

// UpdateTicketInput 更新票据输入
type UpdateTicketInput struct {
	MinInvestmentAmount   *models.Money
	CommissionRatePercent *int
	SecurityTypes         []string
	Actor                 string
}

// UpdateTicket 更新票据属性并触发匹配刷新
func (s *CatalogService) UpdateTicket(id uint, input UpdateTicketInput) (*models.Ticket, error) {
	ticket, err := s.GetTicket(id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if input.MinInvestmentAmount != nil {
		updates["min_investment_amount"] = *input.MinInvestmentAmount
	}
	if input.CommissionRatePercent != nil {
		if *input.CommissionRatePercent < 0 || *input.CommissionRatePercent > 100 {
			return nil, ErrPercentOutOfRange
		}
		updates["commission_rate_percent"] = *input.CommissionRatePercent
	}
	if input.SecurityTypes != nil {
		securityTypes, err := normalizeSecurityTypes(input.SecurityTypes)
		if err != nil {
			return nil, err
		}
		updates["security_types"] = securityTypes
	}
	if len(updates) == 0 {
		return ticket, nil
	}
	if err := s.ticketRepo.UpdateFields(id, updates); err != nil {
		return nil, err
	}
	if err := s.auditService.Record(AuditRecordInput{
		Action:     constants.AuditActionTicketUpdated,
		EntityType: constants.EntityTypeTicket,
		EntityID:   strconv.FormatUint(uint64(id), 10),
		Actor:      input.Actor,
	}); err != nil {
		return nil, err
	}
	s.triggerTicket(id)
	return s.GetTicket(id)
}

// ChangeTicketStatus 变更票据状态并触发匹配联动
func (s *CatalogService) ChangeTicketStatus(id uint, status, actor string) (*models.Ticket, error) {
	if !validTicketStatuses[status] {
		return nil, ErrTicketNotFound
	}
	ticket, err := s.GetTicket(id)
	if err != nil {
		return nil, err
	}
	if ticket.Status == status {
		return ticket, nil
	}
	if err := s.ticketRepo.UpdateFields(id, map[string]interface{}{"status": status}); err != nil {
		return nil, err
	}
	if err := s.auditService.Record(AuditRecordInput{
		Action:     constants.AuditActionTicketUpdated,
		EntityType: constants.EntityTypeTicket,
		EntityID:   strconv.FormatUint(uint64(id), 10),
		Actor:      actor,
		OldState:   ticket.Status,
		NewState:   status,
	}); err != nil {
		return nil, err
	}
	s.triggerTicket(id)
	return s.GetTicket(id)
}

// CreateInvestorInput 创建投资人输入
type CreateInvestorInput struct {
	Name            string
	InvestmentForms []string
	YieldMin        models.Money
	YieldMax        models.Money
	SecurityTypes   []string
}

// CreateInvestor 创建投资人并触发初始匹配
func (s *CatalogService) CreateInvestor(input CreateInvestorInput) (*models.Investor, error) {
	forms, err := normalizeInvestmentForms(input.InvestmentForms)
	if err != nil {
		return nil, err
	}
	securityTypes, err := normalizeSecurityTypes(input.SecurityTypes)
	if err != nil {
		return nil, err
	}
	if input.YieldMin.Decimal.Cmp(input.YieldMax.Decimal) > 0 {
		return nil, ErrYieldRangeInvalid
	}
	investor := &models.Investor{
		Name:            strings.TrimSpace(input.Name),
		State:           constants.InvestorStateActive,
		InvestmentForms: forms,
		YieldMin:        input.YieldMin,
		YieldMax:        input.YieldMax,
		SecurityTypes:   securityTypes,
	}
	if err := s.investorRepo.Create(investor); err != nil {
		return nil, err
	}
	s.triggerInvestor(investor.ID)
	return investor, nil
}

// GetInvestor 获取投资人
func (s *CatalogService) GetInvestor(id uint) (*models.Investor, error) {
	investor, err := s.investorRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if investor == nil {
		return nil, ErrInvestorNotFound
	}
	return investor, nil
}

// ListInvestorsForAdmin 管理端查询投资人列表
func (s *CatalogService) ListInvestorsForAdmin(filter repository.InvestorListFilter) ([]models.Investor, int64, error) {
	return s.investorRepo.List(filter)
}

// UpdateInvestorInput 更新投资人输入
type UpdateInvestorInput struct {
	Name            *string
	State           *string
	InvestmentForms []string
	YieldMin        *models.Money
	YieldMax        *models.Money
	SecurityTypes   []string
	Actor           string
}

// UpdateInvestor 更新投资人画像并触发匹配重算
func (s *CatalogService) UpdateInvestor(id uint, input UpdateInvestorInput) (*models.Investor, error) {
	investor, err := s.GetInvestor(id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.State != nil {
		state := strings.TrimSpace(*input.State)
		if state != constants.InvestorStateActive && state != constants.InvestorStateArchived {
			return nil, ErrInvestorNotFound
		}
		updates["state"] = state
	}
	if input.InvestmentForms != nil {
		forms, err := normalizeInvestmentForms(input.InvestmentForms)
		if err != nil {
			return nil, err
		}
		updates["investment_forms"] = forms
	}
	yieldMin := investor.YieldMin
	yieldMax := investor.YieldMax
	if input.YieldMin != nil {
		yieldMin = *input.YieldMin
		updates["yield_min"] = yieldMin
	}
	if input.YieldMax != nil {
		yieldMax = *input.YieldMax
		updates["yield_max"] = yieldMax
	}
	if yieldMin.Decimal.Cmp(yieldMax.Decimal) > 0 {
		return nil, ErrYieldRangeInvalid
	}
	if input.SecurityTypes != nil {
		securityTypes, err := normalizeSecurityTypes(input.SecurityTypes)
		if err != nil {
			return nil, err
		}
		updates["security_types"] = securityTypes
	}
	if len(updates) == 0 {
		return investor, nil
	}
	if err := s.investorRepo.UpdateFields(id, updates); err != nil {
		return nil, err
	}
	if err := s.auditService.Record(AuditRecordInput{
		Action:     constants.AuditActionInvestorUpdated,
		EntityType: constants.EntityTypeInvestor,
		EntityID:   strconv.FormatUint(uint64(id), 10),
		Actor:      input.Actor,
	}); err != nil {
		return nil, err
	}
	s.triggerInvestor(id)
	return s.GetInvestor(id)
}

func (s *CatalogService) triggerInvestor(investorID uint) {
	if s.matchingService == nil {
		return
	}
	if err := s.matchingService.TriggerInvestorRecalculation(investorID); err != nil {
		logger.Warnw("match_recalculate_trigger_failed", "investor_id", investorID, "error", err)
	}
}

func (s *CatalogService) triggerTicket(ticketID uint) {
	if s.matchingService == nil {
		return
	}
	if err := s.matchingService.TriggerTicketUpdate(ticketID); err != nil {
		logger.Warnw("match_ticket_trigger_failed", "ticket_id", ticketID, "error", err)
	}
}

func normalizeInvestmentForms(forms []string) (models.StringArray, error) {
	result := make(models.StringArray, 0, len(forms))
	for _, form := range forms {
		form = strings.TrimSpace(form)
		if !validInvestmentForms[form] {
			return nil, ErrInvestmentFormInvalid
		}
		result = append(result, form)
	}
	return result, nil
}

func normalizeSecurityTypes(types []string) (models.StringArray, error) {
	result := make(models.StringArray, 0, len(types))
	for _, t := range types {
		t = strings.TrimSpace(t)
		if !validSecurityTypes[t] {
			return nil, ErrSecurityTypeInvalid
		}
		result = append(result, t)
	}
	return result, nil
}
