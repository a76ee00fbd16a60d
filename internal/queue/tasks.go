package queue

import (
	"encoding/json"

	"github.com/tipari/platform/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskMatchRecalculateInvestor 投资人匹配重算任务
	TaskMatchRecalculateInvestor = constants.TaskMatchRecalculateInvestor
	// TaskMatchUpdateTicket 票据匹配更新任务
	TaskMatchUpdateTicket = constants.TaskMatchUpdateTicket
)

// MatchRecalculateInvestorPayload 投资人匹配重算任务载荷
type MatchRecalculateInvestorPayload struct {
	InvestorID uint `json:"investor_id"`
}

// MatchUpdateTicketPayload 票据匹配更新任务载荷
type MatchUpdateTicketPayload struct {
	TicketID uint `json:"ticket_id"`
}

// NewMatchRecalculateInvestorTask 创建投资人匹配重算任务
func NewMatchRecalculateInvestorTask(payload MatchRecalculateInvestorPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMatchRecalculateInvestor, body), nil
}

// NewMatchUpdateTicketTask 创建票据匹配更新任务
func NewMatchUpdateTicketTask(payload MatchUpdateTicketPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMatchUpdateTicket, body), nil
}
