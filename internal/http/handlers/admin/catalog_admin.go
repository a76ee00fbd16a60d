package admin

import (
	"strings"

	"github.com/tipari/platform/internal/http/response"
	"github.com/tipari/platform/internal/models"
	"github.com/tipari/platform/internal/repository"
	"github.com/tipari/platform/internal/service"

	"github.com/gin-gonic/gin"
)

type createBrokerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// CreateBroker 创建经纪人
func (h *Handler) CreateBroker(c *gin.Context) {
	var req createBrokerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	broker, err := h.CatalogService.CreateBroker(req.Name, req.Email)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to create broker", err)
		return
	}
	response.Success(c, broker)
}

type createProjectRequest struct {
	Name           string       `json:"name" binding:"required"`
	InvestmentForm string       `json:"investment_form" binding:"required"`
	YieldPA        models.Money `json:"yield_pa"`
}

// CreateProject 创建项目
func (h *Handler) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	project, err := h.CatalogService.CreateProject(service.CreateProjectInput{
		Name:           req.Name,
		InvestmentForm: req.InvestmentForm,
		YieldPA:        req.YieldPA,
	})
	if err != nil {
		respondWithMappedError(c, err, catalogErrorRules, response.CodeInternal, "failed to create project")
		return
	}
	response.Success(c, project)
}

// PublishProject 发布项目
func (h *Handler) PublishProject(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	project, err := h.CatalogService.PublishProject(id, adminActor(c))
	if err != nil {
		respondWithMappedError(c, err, notFoundErrorRules, response.CodeInternal, "failed to publish project")
		return
	}
	response.Success(c, project)
}

type createTicketRequest struct {
	ProjectID             uint         `json:"project_id" binding:"required"`
	MinInvestmentAmount   models.Money `json:"min_investment_amount"`
	CommissionRatePercent int          `json:"commission_rate_percent"`
	SecurityTypes         []string     `json:"security_types"`
}

// CreateTicket 创建票据
func (h *Handler) CreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	ticket, err := h.CatalogService.CreateTicket(service.CreateTicketInput{
		ProjectID:             req.ProjectID,
		MinInvestmentAmount:   req.MinInvestmentAmount,
		CommissionRatePercent: req.CommissionRatePercent,
		SecurityTypes:         req.SecurityTypes,
	})
	if err != nil {
		respondWithMappedError(c, err,
			concatMappedHandlerErrors(notFoundErrorRules, catalogErrorRules),
			response.CodeInternal, "failed to create ticket")
		return
	}
	response.Success(c, ticket)
}

// ListTickets 查询票据列表
func (h *Handler) ListTickets(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := repository.TicketListFilter{
		Page:      page,
		PageSize:  pageSize,
		ProjectID: parseUintQuery(c, "project_id"),
		Status:    strings.TrimSpace(c.Query("status")),
	}
	rows, total, err := h.CatalogService.ListTicketsForAdmin(filter)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to list tickets", err)
		return
	}
	response.SuccessWithPage(c, rows, buildPagination(page, pageSize, total))
}

type updateTicketRequest struct {
	MinInvestmentAmount   *models.Money `json:"min_investment_amount"`
	CommissionRatePercent *int          `json:"commission_rate_percent"`
	SecurityTypes         []string      `json:"security_types"`
}

// UpdateTicket 更新票据属性
func (h *Handler) UpdateTicket(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	ticket, err := h.CatalogService.UpdateTicket(id, service.UpdateTicketInput{
		MinInvestmentAmount:   req.MinInvestmentAmount,
		CommissionRatePercent: req.CommissionRatePercent,
		SecurityTypes:         req.SecurityTypes,
		Actor:                 adminActor(c),
	})
	if err != nil {
		respondWithMappedError(c, err,
			concatMappedHandlerErrors(notFoundErrorRules, catalogErrorRules),
			response.CodeInternal, "failed to update ticket")
		return
	}
	response.Success(c, ticket)
}

type changeTicketStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ChangeTicketStatus 变更票据状态
func (h *Handler) ChangeTicketStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req changeTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	ticket, err := h.CatalogService.ChangeTicketStatus(id, strings.TrimSpace(req.Status), adminActor(c))
	if err != nil {
		respondWithMappedError(c, err, notFoundErrorRules, response.CodeInternal, "failed to change ticket status")
		return
	}
	response.Success(c, ticket)
}

type createInvestorRequest struct {
	Name            string       `json:"name" binding:"required"`
	InvestmentForms []string     `json:"investment_forms"`
	YieldMin        models.Money `json:"yield_min"`
	YieldMax        models.Money `json:"yield_max"`
	SecurityTypes   []string     `json:"security_types"`
}

// CreateInvestor 创建投资人
func (h *Handler) CreateInvestor(c *gin.Context) {
	var req createInvestorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	investor, err := h.CatalogService.CreateInvestor(service.CreateInvestorInput{
		Name:            req.Name,
		InvestmentForms: req.InvestmentForms,
		YieldMin:        req.YieldMin,
		YieldMax:        req.YieldMax,
		SecurityTypes:   req.SecurityTypes,
	})
	if err != nil {
		respondWithMappedError(c, err, catalogErrorRules, response.CodeInternal, "failed to create investor")
		return
	}
	response.Success(c, investor)
}

// ListInvestors 查询投资人列表
func (h *Handler) ListInvestors(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := repository.InvestorListFilter{
		Page:     page,
		PageSize: pageSize,
		State:    strings.TrimSpace(c.Query("state")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	rows, total, err := h.CatalogService.ListInvestorsForAdmin(filter)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to list investors", err)
		return
	}
	response.SuccessWithPage(c, rows, buildPagination(page, pageSize, total))
}

type updateInvestorRequest struct {
	Name            *string       `json:"name"`
	State           *string       `json:"state"`
	InvestmentForms []string      `json:"investment_forms"`
	YieldMin        *models.Money `json:"yield_min"`
	YieldMax        *models.Money `json:"yield_max"`
	SecurityTypes   []string      `json:"security_types"`
}

// UpdateInvestor 更新投资人画像
func (h *Handler) UpdateInvestor(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateInvestorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	investor, err := h.CatalogService.UpdateInvestor(id, service.UpdateInvestorInput{
		Name:            req.Name,
		State:           req.State,
		InvestmentForms: req.InvestmentForms,
		YieldMin:        req.YieldMin,
		YieldMax:        req.YieldMax,
		SecurityTypes:   req.SecurityTypes,
		Actor:           adminActor(c),
	})
	if err != nil {
		respondWithMappedError(c, err,
			concatMappedHandlerErrors(notFoundErrorRules, catalogErrorRules),
			response.CodeInternal, "failed to update investor")
		return
	}
	response.Success(c, investor)
}
