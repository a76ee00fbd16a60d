package models

import (
	"time"

	"gorm.io/gorm"
)

// CommissionFinance 佣金财务分成记录（与主记录一对一，按外键关联）
type CommissionFinance struct {
	ID                        uint           `gorm:"primarykey" json:"id"`                                                      // 主键
	CommissionID              uint           `gorm:"not null;uniqueIndex" json:"commission_id"`                                 // 佣金主记录ID（唯一）
	SplitRuleID               *uint          `gorm:"index" json:"split_rule_id,omitempty"`                                      // 采用的分成规则ID（兜底规则为空）
	SplitStatus               string         `gorm:"type:varchar(32);not null;default:'pending'" json:"split_status"`           // 分成状态 pending/calculated/locked
	PlatformFeePercent        int            `gorm:"not null;default:0" json:"platform_fee_percent"`                            // 平台费比例
	OriginBrokerPercent       int            `gorm:"not null;default:0" json:"origin_broker_percent"`                           // 来源经纪人比例
	ReservationBrokerPercent  int            `gorm:"not null;default:0" json:"reservation_broker_percent"`                      // 预约经纪人比例
	PlatformFeeAmount         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"platform_fee_amount"`          // 平台费金额
	OriginBrokerAmount        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"origin_broker_amount"`         // 来源经纪人金额
	ReservationBrokerAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"reservation_broker_amount"`    // 预约经纪人金额
	OriginBrokerID            *uint          `gorm:"index" json:"origin_broker_id,omitempty"`                                   // 来源经纪人ID
	ReservationBrokerID       uint           `gorm:"not null;index" json:"reservation_broker_id"`                               // 预约经纪人ID
	LockedAt                  *time.Time     `json:"locked_at,omitempty"`                                                       // 锁定时间
	CreatedAt                 time.Time      `gorm:"index" json:"created_at"`                                                   // 创建时间
	UpdatedAt                 time.Time      `json:"updated_at"`                                                                // 更新时间
	DeletedAt                 gorm.DeletedAt `gorm:"index" json:"-"`                                                            // 软删除时间

	SplitRule *CommissionSplitRule `gorm:"foreignKey:SplitRuleID" json:"split_rule,omitempty"` // 分成规则
}

// TableName 指定表名
func (CommissionFinance) TableName() string {
	return "commission_finances"
}
