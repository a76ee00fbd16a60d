package admin

import (
	"strings"

	"github.com/tipari/platform/internal/http/response"
	"github.com/tipari/platform/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListMatches 查询匹配结果列表
func (h *Handler) ListMatches(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := repository.MatchListFilter{
		Page:       page,
		PageSize:   pageSize,
		InvestorID: parseUintQuery(c, "investor_id"),
		TicketID:   parseUintQuery(c, "ticket_id"),
		Quality:    strings.TrimSpace(c.Query("quality")),
		OnlyActive: c.Query("only_active") == "true",
	}
	rows, total, err := h.MatchingService.ListForAdmin(filter)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to list matches", err)
		return
	}
	response.SuccessWithPage(c, rows, buildPagination(page, pageSize, total))
}

// RecalculateInvestorMatches 手工触发投资人匹配重算（同步执行）
func (h *Handler) RecalculateInvestorMatches(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.MatchingService.RecalculateForInvestor(id)
	if err != nil {
		respondWithMappedError(c, err, notFoundErrorRules, response.CodeInternal, "failed to recalculate matches")
		return
	}
	response.Success(c, stats)
}

// RefreshTicketMatches 手工触发票据匹配刷新（同步执行）
func (h *Handler) RefreshTicketMatches(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.MatchingService.UpdateForTicket(id)
	if err != nil {
		respondWithMappedError(c, err, notFoundErrorRules, response.CodeInternal, "failed to refresh matches")
		return
	}
	response.Success(c, stats)
}
