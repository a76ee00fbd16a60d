package admin

import (
	"errors"

	handlershared "github.com/tipari/platform/internal/http/handlers/shared"
	"github.com/tipari/platform/internal/http/response"
	"github.com/tipari/platform/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondErrorWithMsg(c, code, msg, err)
}

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondErrorWithMsg(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondErrorWithMsg(c, fallbackCode, fallbackMsg, err)
}

var notFoundErrorRules = []mappedHandlerError{
	{target: service.ErrBrokerNotFound, code: response.CodeNotFound, msg: "broker not found"},
	{target: service.ErrProjectNotFound, code: response.CodeNotFound, msg: "project not found"},
	{target: service.ErrTicketNotFound, code: response.CodeNotFound, msg: "ticket not found"},
	{target: service.ErrInvestorNotFound, code: response.CodeNotFound, msg: "investor not found"},
	{target: service.ErrReservationNotFound, code: response.CodeNotFound, msg: "reservation not found"},
	{target: service.ErrCommissionNotFound, code: response.CodeNotFound, msg: "commission not found"},
	{target: service.ErrSplitRuleNotFound, code: response.CodeNotFound, msg: "split rule not found"},
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "record not found"},
}

var reservationErrorRules = []mappedHandlerError{
	{target: service.ErrTicketNotAvailable, code: response.CodeBadRequest, msg: "ticket is not available for reservation"},
	{target: service.ErrTicketSlotsExhausted, code: response.CodeBadRequest, msg: "ticket reservation slots are exhausted"},
	{target: service.ErrReservationStateInvalid, code: response.CodeBadRequest, msg: "reservation state transition not allowed"},
	{target: service.ErrReservationTerminated, code: response.CodeBadRequest, msg: "reservation already terminated"},
}

var commissionErrorRules = []mappedHandlerError{
	{target: service.ErrCommissionPhaseInvalid, code: response.CodeBadRequest, msg: "commission phase transition not allowed"},
	{target: service.ErrCollectabilityInvalid, code: response.CodeBadRequest, msg: "collectability transition not allowed"},
	{target: service.ErrCommissionTerminated, code: response.CodeBadRequest, msg: "commission already terminated"},
	{target: service.ErrWriteOffReasonTooShort, code: response.CodeBadRequest, msg: "write-off reason must be at least 50 characters"},
	{target: service.ErrWriteOffInvalidState, code: response.CodeBadRequest, msg: "write-off allowed only from in_collection"},
	{target: service.ErrWriteOffAdminOnly, code: response.CodeBadRequest, msg: "write-off requires an admin actor"},
	{target: service.ErrInvalidSplitSum, code: response.CodeBadRequest, msg: "split percentages must sum to 100"},
	{target: service.ErrSplitLocked, code: response.CodeBadRequest, msg: "split is locked"},
	{target: service.ErrSplitNotCalculated, code: response.CodeBadRequest, msg: "split has not been calculated"},
	{target: service.ErrPercentOutOfRange, code: response.CodeBadRequest, msg: "percentage must be an integer between 0 and 100"},
}

var catalogErrorRules = []mappedHandlerError{
	{target: service.ErrInvestmentFormInvalid, code: response.CodeBadRequest, msg: "investment form is not recognized"},
	{target: service.ErrSecurityTypeInvalid, code: response.CodeBadRequest, msg: "security type is not recognized"},
	{target: service.ErrYieldRangeInvalid, code: response.CodeBadRequest, msg: "yield range is invalid"},
	{target: service.ErrPercentOutOfRange, code: response.CodeBadRequest, msg: "percentage must be an integer between 0 and 100"},
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}
