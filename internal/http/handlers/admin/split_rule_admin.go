package admin

import (
	"strings"

	"github.com/tipari/platform/internal/http/response"
	"github.com/tipari/platform/internal/repository"
	"github.com/tipari/platform/internal/service"

	"github.com/gin-gonic/gin"
)

// ListSplitRules 查询分成规则列表
func (h *Handler) ListSplitRules(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := repository.SplitRuleListFilter{
		Page:       page,
		PageSize:   pageSize,
		Scope:      strings.TrimSpace(c.Query("scope")),
		ProjectID:  parseUintQuery(c, "project_id"),
		OnlyActive: c.Query("only_active") == "true",
	}
	rows, total, err := h.CommissionService.ListSplitRules(filter)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to list split rules", err)
		return
	}
	response.SuccessWithPage(c, rows, buildPagination(page, pageSize, total))
}

type createSplitRuleRequest struct {
	Name                     string `json:"name" binding:"required"`
	Scope                    string `json:"scope" binding:"required"`
	ProjectID                uint   `json:"project_id"`
	PlatformFeePercent       int    `json:"platform_fee_percent"`
	OriginBrokerPercent      int    `json:"origin_broker_percent"`
	ReservationBrokerPercent int    `json:"reservation_broker_percent"`
}

// CreateSplitRule 创建分成规则
func (h *Handler) CreateSplitRule(c *gin.Context) {
	var req createSplitRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	rule, err := h.CommissionService.CreateSplitRule(service.CreateSplitRuleInput{
		Name:                     req.Name,
		Scope:                    req.Scope,
		ProjectID:                req.ProjectID,
		PlatformFeePercent:       req.PlatformFeePercent,
		OriginBrokerPercent:      req.OriginBrokerPercent,
		ReservationBrokerPercent: req.ReservationBrokerPercent,
		CreatedBy:                adminActor(c),
	})
	if err != nil {
		respondWithMappedError(c, err,
			concatMappedHandlerErrors(notFoundErrorRules, commissionErrorRules),
			response.CodeInternal, "failed to create split rule")
		return
	}
	response.Success(c, rule)
}

// DeactivateSplitRule 停用分成规则
func (h *Handler) DeactivateSplitRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.CommissionService.DeactivateSplitRule(id); err != nil {
		respondWithMappedError(c, err, notFoundErrorRules, response.CodeInternal, "failed to deactivate split rule")
		return
	}
	response.Success(c, nil)
}
