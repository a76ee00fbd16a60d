package admin

import (
	"strings"

	"github.com/tipari/platform/internal/http/response"
	"github.com/tipari/platform/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuditEvents 查询审计事件列表
func (h *Handler) ListAuditEvents(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := repository.AuditEventListFilter{
		Page:       page,
		PageSize:   pageSize,
		Action:     strings.TrimSpace(c.Query("action")),
		EntityType: strings.TrimSpace(c.Query("entity_type")),
		EntityID:   strings.TrimSpace(c.Query("entity_id")),
		Actor:      strings.TrimSpace(c.Query("actor")),
		Severity:   strings.TrimSpace(c.Query("severity")),
		RunID:      strings.TrimSpace(c.Query("run_id")),
	}
	rows, total, err := h.AuditService.ListForAdmin(filter)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to list audit events", err)
		return
	}
	response.SuccessWithPage(c, rows, buildPagination(page, pageSize, total))
}

// ListIncidents 查询系统事故列表
func (h *Handler) ListIncidents(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := repository.IncidentListFilter{
		Page:     page,
		PageSize: pageSize,
		Source:   strings.TrimSpace(c.Query("source")),
		Severity: strings.TrimSpace(c.Query("severity")),
		Status:   strings.TrimSpace(c.Query("status")),
	}
	rows, total, err := h.IncidentService.ListForAdmin(filter)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to list incidents", err)
		return
	}
	response.SuccessWithPage(c, rows, buildPagination(page, pageSize, total))
}

// ResolveIncident 标记事故已处理
func (h *Handler) ResolveIncident(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.IncidentService.Resolve(id); err != nil {
		respondWithMappedError(c, err, notFoundErrorRules, response.CodeInternal, "failed to resolve incident")
		return
	}
	response.Success(c, nil)
}
