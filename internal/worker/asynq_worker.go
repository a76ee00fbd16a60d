package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/tipari/platform/internal/logger"
	"github.com/tipari/platform/internal/provider"
	"github.com/tipari/platform/internal/queue"
	"github.com/tipari/platform/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskMatchRecalculateInvestor, c.handleMatchRecalculateInvestor)
	mux.HandleFunc(queue.TaskMatchUpdateTicket, c.handleMatchUpdateTicket)
}

func (c *Consumer) handleMatchRecalculateInvestor(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_match_recalculate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.MatchRecalculateInvestorPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_match_recalculate_unmarshal_failed", "error", err)
		return err
	}
	if payload.InvestorID == 0 {
		logger.Debugw("worker_match_recalculate_skip_invalid_payload", "investor_id", payload.InvestorID)
		return nil
	}
	if c.MatchingService == nil {
		logger.Warnw("worker_match_recalculate_skip_service_nil", "investor_id", payload.InvestorID)
		return nil
	}
	stats, err := c.MatchingService.RecalculateForInvestor(payload.InvestorID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvestorNotFound):
			logger.Debugw("worker_match_recalculate_skip_investor_not_found", "investor_id", payload.InvestorID)
			return nil
		default:
			logger.Warnw("worker_match_recalculate_failed", "investor_id", payload.InvestorID, "error", err)
			return err
		}
	}
	logger.Debugw("worker_match_recalculate_done",
		"investor_id", payload.InvestorID,
		"evaluated", stats.Evaluated,
		"created", stats.Created,
		"updated", stats.Updated,
		"deactivated", stats.Deactivated,
	)
	return nil
}

func (c *Consumer) handleMatchUpdateTicket(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_match_update_ticket_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.MatchUpdateTicketPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_match_update_ticket_unmarshal_failed", "error", err)
		return err
	}
	if payload.TicketID == 0 {
		logger.Debugw("worker_match_update_ticket_skip_invalid_payload", "ticket_id", payload.TicketID)
		return nil
	}
	if c.MatchingService == nil {
		logger.Warnw("worker_match_update_ticket_skip_service_nil", "ticket_id", payload.TicketID)
		return nil
	}
	stats, err := c.MatchingService.UpdateForTicket(payload.TicketID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTicketNotFound):
			logger.Debugw("worker_match_update_ticket_skip_not_found", "ticket_id", payload.TicketID)
			return nil
		default:
			logger.Warnw("worker_match_update_ticket_failed", "ticket_id", payload.TicketID, "error", err)
			return err
		}
	}
	logger.Debugw("worker_match_update_ticket_done",
		"ticket_id", payload.TicketID,
		"evaluated", stats.Evaluated,
		"created", stats.Created,
		"updated", stats.Updated,
		"deactivated", stats.Deactivated,
	)
	return nil
}
