package service

import "errors"

// 业务哨兵错误，供 handler 与 worker 用 errors.Is 分流。
var (
	ErrNotFound            = errors.New("record not found")
	ErrBrokerNotFound      = errors.New("broker not found")
	ErrProjectNotFound     = errors.New("project not found")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrInvestorNotFound    = errors.New("investor not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrCommissionNotFound  = errors.New("commission not found")
	ErrSplitRuleNotFound   = errors.New("split rule not found")

	ErrTicketNotAvailable      = errors.New("ticket not available for reservation")
	ErrTicketSlotsExhausted    = errors.New("ticket reservation slots exhausted")
	ErrReservationStateInvalid = errors.New("reservation state transition not allowed")
	ErrReservationTerminated   = errors.New("reservation already terminated")

	ErrInvalidSplitSum          = errors.New("split percentages must sum to 100")
	ErrSplitLocked              = errors.New("split is locked and cannot be recalculated")
	ErrSplitNotCalculated       = errors.New("split has not been calculated")
	ErrCommissionPhaseInvalid   = errors.New("commission entitlement phase transition not allowed")
	ErrCollectabilityInvalid    = errors.New("collectability transition not allowed")
	ErrCommissionTerminated     = errors.New("commission already terminated")
	ErrWriteOffReasonTooShort   = errors.New("write-off reason must be at least 50 characters")
	ErrWriteOffInvalidState     = errors.New("write-off allowed only from in_collection")
	ErrWriteOffAdminOnly        = errors.New("write-off requires an admin actor")
	ErrInvestmentFormInvalid    = errors.New("investment form is not recognized")
	ErrYieldRangeInvalid        = errors.New("yield range is invalid")
	ErrSecurityTypeInvalid      = errors.New("security type is not recognized")
	ErrPercentOutOfRange        = errors.New("percentage must be an integer between 0 and 100")
)
