package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tipari/platform/internal/config"
	"github.com/tipari/platform/internal/logger"
	"github.com/tipari/platform/internal/queue"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	reservationExpiryInterval = time.Hour
	commissionSweepInterval   = 24 * time.Hour
	matchValidationInterval   = 24 * time.Hour
	slaMonitorInterval        = time.Hour
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil {
		if s.consumer.ReservationService != nil {
			go s.runReservationExpiryLoop(ctx)
		}
		if s.consumer.CommissionService != nil {
			go s.runCommissionSweepLoop(ctx)
		}
		if s.consumer.MatchingService != nil {
			go s.runMatchValidationLoop(ctx)
			go s.runSLAMonitorLoop(ctx)
		}
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) runReservationExpiryLoop(ctx context.Context) {
	runOnce := func() {
		// 每轮固定一个 now
		now := time.Now()
		runID := newRunID("resv")
		if _, err := s.consumer.ReservationService.ExpireDueReservations(now, runID); err != nil {
			logger.Warnw("worker_reservation_expiry_failed", "run_id", runID, "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(reservationExpiryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func (s *Service) runCommissionSweepLoop(ctx context.Context) {
	runOnce := func() {
		now := time.Now()
		runID := newRunID("comm")
		if _, err := s.consumer.CommissionService.SweepDeadlines(now, runID); err != nil {
			logger.Warnw("worker_commission_sweep_failed", "run_id", runID, "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(commissionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func (s *Service) runMatchValidationLoop(ctx context.Context) {
	runOnce := func() {
		now := time.Now()
		runID := newRunID("mval")
		if _, err := s.consumer.MatchingService.ValidateMatches(now, runID); err != nil {
			logger.Warnw("worker_match_validation_failed", "run_id", runID, "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(matchValidationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func (s *Service) runSLAMonitorLoop(ctx context.Context) {
	runOnce := func() {
		violations, err := s.consumer.MatchingService.MonitorSLA(time.Now())
		if err != nil {
			logger.Warnw("worker_sla_monitor_failed", "error", err)
			return
		}
		if violations > 0 {
			logger.Warnw("worker_sla_monitor_violations", "violations", violations)
		}
	}
	runOnce()

	ticker := time.NewTicker(slaMonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func newRunID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.New().String())
}
