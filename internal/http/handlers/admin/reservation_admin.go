package admin

import (
	"strings"
	"time"

	"github.com/tipari/platform/internal/http/response"
	"github.com/tipari/platform/internal/repository"
	"github.com/tipari/platform/internal/service"

	"github.com/gin-gonic/gin"
)

type createReservationRequest struct {
	TicketID uint `json:"ticket_id" binding:"required"`
	BrokerID uint `json:"broker_id" binding:"required"`
}

// CreateReservation 创建预约
func (h *Handler) CreateReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	reservation, err := h.ReservationService.CreateReservation(service.CreateReservationInput{
		TicketID: req.TicketID,
		BrokerID: req.BrokerID,
		Actor:    adminActor(c),
	})
	if err != nil {
		respondWithMappedError(c, err,
			concatMappedHandlerErrors(notFoundErrorRules, reservationErrorRules),
			response.CodeInternal, "failed to create reservation")
		return
	}
	response.Success(c, reservation)
}

type transitionReservationRequest struct {
	Target string `json:"target" binding:"required"`
}

// TransitionReservation 推进预约状态
func (h *Handler) TransitionReservation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req transitionReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	reservation, err := h.ReservationService.Transition(id, strings.TrimSpace(req.Target), adminActor(c), time.Now())
	if err != nil {
		respondWithMappedError(c, err,
			concatMappedHandlerErrors(notFoundErrorRules, reservationErrorRules, commissionErrorRules),
			response.CodeInternal, "failed to transition reservation")
		return
	}
	response.Success(c, reservation)
}

// GetReservation 获取预约详情
func (h *Handler) GetReservation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	reservation, err := h.ReservationService.GetByID(id)
	if err != nil {
		respondWithMappedError(c, err, notFoundErrorRules, response.CodeInternal, "failed to get reservation")
		return
	}
	response.Success(c, reservation)
}

// ListReservations 查询预约列表
func (h *Handler) ListReservations(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := repository.ReservationListFilter{
		Page:     page,
		PageSize: pageSize,
		TicketID: parseUintQuery(c, "ticket_id"),
		BrokerID: parseUintQuery(c, "broker_id"),
		State:    strings.TrimSpace(c.Query("state")),
	}
	rows, total, err := h.ReservationService.ListForAdmin(filter)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to list reservations", err)
		return
	}
	response.SuccessWithPage(c, rows, buildPagination(page, pageSize, total))
}
