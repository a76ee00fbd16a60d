package service

import (
	"time"

	"github.com/tipari/platform/internal/config"
)

const (
	defaultReservationTimeoutDays     = 30
	defaultNegotiationTimeoutDays     = 90
	defaultPlatformPaymentTimeoutDays = 30
	defaultBrokerPayoutTimeoutDays    = 3
	defaultMaxReservationsPerTicket   = 3
)

// DeadlinePolicy 生命周期时限策略，所有截止时间的唯一计算入口
type DeadlinePolicy struct {
	ReservationTimeoutDays     int
	NegotiationTimeoutDays     int
	PlatformPaymentTimeoutDays int
	BrokerPayoutTimeoutDays    int
	MaxReservationsPerTicket   int
}

// NewDeadlinePolicy 从配置构建时限策略，非法值回退默认
func NewDeadlinePolicy(cfg *config.LifecycleConfig) DeadlinePolicy {
	policy := DeadlinePolicy{
		ReservationTimeoutDays:     defaultReservationTimeoutDays,
		NegotiationTimeoutDays:     defaultNegotiationTimeoutDays,
		PlatformPaymentTimeoutDays: defaultPlatformPaymentTimeoutDays,
		BrokerPayoutTimeoutDays:    defaultBrokerPayoutTimeoutDays,
		MaxReservationsPerTicket:   defaultMaxReservationsPerTicket,
	}
	if cfg == nil {
		return policy
	}
	if cfg.ReservationTimeoutDays > 0 {
		policy.ReservationTimeoutDays = cfg.ReservationTimeoutDays
	}
	if cfg.NegotiationTimeoutDays > 0 {
		policy.NegotiationTimeoutDays = cfg.NegotiationTimeoutDays
	}
	if cfg.PlatformPaymentTimeoutDays > 0 {
		policy.PlatformPaymentTimeoutDays = cfg.PlatformPaymentTimeoutDays
	}
	if cfg.BrokerPayoutTimeoutDays > 0 {
		policy.BrokerPayoutTimeoutDays = cfg.BrokerPayoutTimeoutDays
	}
	if cfg.MaxReservationsPerTicket > 0 {
		policy.MaxReservationsPerTicket = cfg.MaxReservationsPerTicket
	}
	return policy
}

// ReservationExpiresAt 预约过期时间（自创建起）
func (p DeadlinePolicy) ReservationExpiresAt(createdAt time.Time) time.Time {
	return createdAt.AddDate(0, 0, p.ReservationTimeoutDays)
}

// NegotiationDeadline 谈判截止时间（自激活起）
func (p DeadlinePolicy) NegotiationDeadline(activatedAt time.Time) time.Time {
	return activatedAt.AddDate(0, 0, p.NegotiationTimeoutDays)
}

// PlatformPaymentDeadline 平台收款截止时间（自投资确认起）
func (p DeadlinePolicy) PlatformPaymentDeadline(confirmedAt time.Time) time.Time {
	return confirmedAt.AddDate(0, 0, p.PlatformPaymentTimeoutDays)
}

// BrokerPayoutDeadline 经纪人结算截止时间（自平台到账起）
func (p DeadlinePolicy) BrokerPayoutDeadline(platformPaidAt time.Time) time.Time {
	return platformPaidAt.AddDate(0, 0, p.BrokerPayoutTimeoutDays)
}
