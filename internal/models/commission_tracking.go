package models

import (
	"time"

	"gorm.io/gorm"
)

// CommissionTracking 佣金生命周期主记录
//
// reservation_id 上的唯一索引是佣金恰好创建一次的保证：
// 预约激活事件重放时插入会命中唯一冲突并被幂等吞掉。
type CommissionTracking struct {
	ID                       uint           `gorm:"primarykey" json:"id"`                                              // 主键
	ReservationID            uint           `gorm:"not null;uniqueIndex" json:"reservation_id"`                        // 预约ID（唯一）
	TicketID                 uint           `gorm:"not null;index" json:"ticket_id"`                                   // 票据ID
	ProjectID                uint           `gorm:"not null;index" json:"project_id"`                                  // 项目ID
	BrokerID                 uint           `gorm:"not null;index" json:"broker_id"`                                   // 预约经纪人ID
	Status                   string         `gorm:"type:varchar(32);not null;index" json:"status"`                     // 状态 pending/entitled/payable/paid/written_off
	EntitlementPhase         string         `gorm:"type:varchar(32);not null;index" json:"entitlement_phase"`          // 权益阶段
	Collectability           string         `gorm:"type:varchar(32);not null;index" json:"collectability"`             // 可回收状态
	CommissionRatePercent    int            `gorm:"not null;default:0" json:"commission_rate_percent"`                 // 佣金比例（整数百分比）
	CommissionAmount         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"`    // 佣金金额（CZK）
	NegotiationDeadline      *time.Time     `gorm:"index" json:"negotiation_deadline,omitempty"`                       // 谈判截止时间
	InvestmentConfirmedAt    *time.Time     `json:"investment_confirmed_at,omitempty"`                                 // 投资确认时间
	PlatformPaymentDeadline  *time.Time     `gorm:"index" json:"platform_payment_deadline,omitempty"`                  // 平台收款截止时间
	PlatformPaidAt           *time.Time     `json:"platform_paid_at,omitempty"`                                        // 平台到账时间
	BrokerPayoutDeadline     *time.Time     `gorm:"index" json:"broker_payout_deadline,omitempty"`                     // 经纪人结算截止时间
	PaidAt                   *time.Time     `json:"paid_at,omitempty"`                                                 // 结清时间
	WaitingOn                string         `gorm:"type:varchar(32);not null;default:'platform'" json:"waiting_on"`    // 当前等待方
	TerminationReason        string         `gorm:"type:varchar(64)" json:"termination_reason"`                        // 终止原因（一次性写入）
	TerminationReasonDetails string         `gorm:"type:text" json:"termination_reason_details"`                       // 终止原因明细
	CollectionAttempts       int            `gorm:"not null;default:0" json:"collection_attempts"`                     // 催收次数
	LegalStatus              string         `gorm:"type:varchar(64)" json:"legal_status"`                              // 法务状态
	CreatedAt                time.Time      `gorm:"index" json:"created_at"`                                           // 创建时间
	UpdatedAt                time.Time      `json:"updated_at"`                                                        // 更新时间
	DeletedAt                gorm.DeletedAt `gorm:"index" json:"-"`                                                    // 软删除时间

	Reservation Reservation              `gorm:"foreignKey:ReservationID" json:"reservation,omitempty"` // 预约
	Finance     *CommissionFinance       `gorm:"foreignKey:CommissionID" json:"finance,omitempty"`      // 财务分成记录
	History     []CommissionStatusHistory `gorm:"foreignKey:CommissionID" json:"history,omitempty"`      // 状态历史
}

// TableName 指定表名
func (CommissionTracking) TableName() string {
	return "commission_trackings"
}
