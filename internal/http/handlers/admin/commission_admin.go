package admin

import (
	"strings"
	"time"

	"github.com/tipari/platform/internal/http/response"
	"github.com/tipari/platform/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListCommissions 查询佣金列表
func (h *Handler) ListCommissions(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := repository.CommissionListFilter{
		Page:             page,
		PageSize:         pageSize,
		BrokerID:         parseUintQuery(c, "broker_id"),
		ProjectID:        parseUintQuery(c, "project_id"),
		Status:           strings.TrimSpace(c.Query("status")),
		EntitlementPhase: strings.TrimSpace(c.Query("entitlement_phase")),
		Collectability:   strings.TrimSpace(c.Query("collectability")),
	}
	rows, total, err := h.CommissionService.ListForAdmin(filter)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to list commissions", err)
		return
	}
	response.SuccessWithPage(c, rows, buildPagination(page, pageSize, total))
}

// GetCommission 获取佣金详情（含状态历史）
func (h *Handler) GetCommission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	tracking, err := h.CommissionService.GetByID(id)
	if err != nil {
		respondWithMappedError(c, err, notFoundErrorRules, response.CodeInternal, "failed to get commission")
		return
	}
	history, err := h.CommissionService.ListHistory(id)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to load commission history", err)
		return
	}
	finance, err := h.CommissionRepo.GetFinanceByCommissionID(id)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to load commission finance", err)
		return
	}
	response.Success(c, gin.H{
		"commission": tracking,
		"finance":    finance,
		"history":    history,
	})
}

// ConfirmInvestment 确认投资成交
func (h *Handler) ConfirmInvestment(c *gin.Context) {
	h.commissionTransition(c, func(id uint, actor string) error {
		return h.CommissionService.ConfirmInvestment(id, actor, time.Now())
	})
}

// MarkCommissionPlatformPaid 平台确认开发商款项到账
func (h *Handler) MarkCommissionPlatformPaid(c *gin.Context) {
	h.commissionTransition(c, func(id uint, actor string) error {
		return h.CommissionService.MarkPlatformPaid(id, actor, time.Now())
	})
}

// MarkCommissionBrokerPayable 经纪人份额进入待结算
func (h *Handler) MarkCommissionBrokerPayable(c *gin.Context) {
	h.commissionTransition(c, func(id uint, actor string) error {
		return h.CommissionService.MarkBrokerPayable(id, actor, time.Now())
	})
}

// MarkCommissionPaid 佣金结清
func (h *Handler) MarkCommissionPaid(c *gin.Context) {
	h.commissionTransition(c, func(id uint, actor string) error {
		return h.CommissionService.MarkPaid(id, actor, time.Now())
	})
}

func (h *Handler) commissionTransition(c *gin.Context, fn func(id uint, actor string) error) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := fn(id, adminActor(c)); err != nil {
		respondWithMappedError(c, err,
			concatMappedHandlerErrors(notFoundErrorRules, commissionErrorRules),
			response.CodeInternal, "failed to update commission")
		return
	}
	tracking, err := h.CommissionService.GetByID(id)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to reload commission", err)
		return
	}
	response.Success(c, tracking)
}

type writeOffRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// WriteOffCommission 核销佣金
func (h *Handler) WriteOffCommission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req writeOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	if err := h.CommissionService.WriteOff(id, adminActor(c), req.Reason); err != nil {
		respondWithMappedError(c, err,
			concatMappedHandlerErrors(notFoundErrorRules, commissionErrorRules),
			response.CodeInternal, "failed to write off commission")
		return
	}
	tracking, err := h.CommissionService.GetByID(id)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to reload commission", err)
		return
	}
	response.Success(c, tracking)
}

// CalculateCommissionSplit 计算佣金分成
func (h *Handler) CalculateCommissionSplit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	finance, err := h.CommissionService.CalculateSplit(id, adminActor(c))
	if err != nil {
		respondWithMappedError(c, err,
			concatMappedHandlerErrors(notFoundErrorRules, commissionErrorRules),
			response.CodeInternal, "failed to calculate split")
		return
	}
	response.Success(c, finance)
}

// LockCommissionSplit 锁定佣金分成
func (h *Handler) LockCommissionSplit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.CommissionService.LockSplit(id, adminActor(c)); err != nil {
		respondWithMappedError(c, err,
			concatMappedHandlerErrors(notFoundErrorRules, commissionErrorRules),
			response.CodeInternal, "failed to lock split")
		return
	}
	finance, err := h.CommissionRepo.GetFinanceByCommissionID(id)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to reload commission finance", err)
		return
	}
	response.Success(c, finance)
}
