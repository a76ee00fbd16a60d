package models

import (
	"time"

	"gorm.io/gorm"
)

// Ticket 投资票据（项目下可被预约的投资额度单元）
type Ticket struct {
	ID                    uint           `gorm:"primarykey" json:"id"`                                                 // 主键
	ProjectID             uint           `gorm:"not null;index" json:"project_id"`                                     // 所属项目
	Status                string         `gorm:"type:varchar(32);not null;index" json:"status"`                        // 状态 available/reserved/completed/closed
	MinInvestmentAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_investment_amount"`   // 最低投资额（CZK）
	CommissionRatePercent int            `gorm:"not null;default:0" json:"commission_rate_percent"`                    // 佣金比例（整数百分比 0-100）
	SecurityTypes         StringArray    `gorm:"type:json" json:"security_types"`                                      // 担保类型集合
	ActiveReservations    int            `gorm:"not null;default:0" json:"active_reservations"`                        // 占用中的预约槽位数
	CreatedAt             time.Time      `gorm:"index" json:"created_at"`                                              // 创建时间
	UpdatedAt             time.Time      `json:"updated_at"`                                                           // 更新时间
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`                                                       // 软删除时间

	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"` // 所属项目
}

// TableName 指定表名
func (Ticket) TableName() string {
	return "tickets"
}
