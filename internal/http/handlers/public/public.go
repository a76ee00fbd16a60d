package public

import (
	"errors"

	handlershared "github.com/tipari/platform/internal/http/handlers/shared"
	"github.com/tipari/platform/internal/http/response"
	"github.com/tipari/platform/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAvailableTickets 查询已发布项目下可预约的票据
func (h *Handler) GetAvailableTickets(c *gin.Context) {
	tickets, err := h.CatalogService.ListAvailableTickets()
	if err != nil {
		handlershared.RespondErrorWithMsg(c, response.CodeInternal, "failed to list tickets", err)
		return
	}
	response.Success(c, tickets)
}

// GetProject 查询项目详情
func (h *Handler) GetProject(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	project, err := h.CatalogService.GetProject(id)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			handlershared.RespondErrorWithMsg(c, response.CodeNotFound, "project not found", nil)
			return
		}
		handlershared.RespondErrorWithMsg(c, response.CodeInternal, "failed to get project", err)
		return
	}
	response.Success(c, project)
}
