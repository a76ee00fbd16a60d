package models

import (
	"time"

	"gorm.io/gorm"
)

// Reservation 投资票据预约
type Reservation struct {
	ID                       uint           `gorm:"primarykey" json:"id"`                                        // 主键
	ReservationNo            string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"reservation_no"` // 预约编号
	TicketID                 uint           `gorm:"not null;index" json:"ticket_id"`                             // 票据ID
	BrokerID                 uint           `gorm:"not null;index" json:"broker_id"`                             // 预约经纪人ID
	State                    string         `gorm:"type:varchar(48);not null;index" json:"state"`                // 预约状态
	ExpiresAt                time.Time      `gorm:"index" json:"expires_at"`                                     // 过期时间
	ActivatedAt              *time.Time     `json:"activated_at,omitempty"`                                      // 激活时间
	TerminationReason        string         `gorm:"type:varchar(64)" json:"termination_reason"`                  // 终止原因（一次性写入）
	TerminationReasonDetails string         `gorm:"type:text" json:"termination_reason_details"`                 // 终止原因明细
	CreatedAt                time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt                time.Time      `json:"updated_at"`                                                  // 更新时间
	DeletedAt                gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间

	Ticket Ticket `gorm:"foreignKey:TicketID" json:"ticket,omitempty"` // 票据
	Broker Broker `gorm:"foreignKey:BrokerID" json:"broker,omitempty"` // 预约经纪人
}

// TableName 指定表名
func (Reservation) TableName() string {
	return "reservations"
}
