package models

import "time"

// CommissionStatusHistory 佣金状态历史（仅追加）
type CommissionStatusHistory struct {
	ID               uint      `gorm:"primarykey" json:"id"`                             // 主键
	CommissionID     uint      `gorm:"not null;index" json:"commission_id"`              // 佣金主记录ID
	Status           string    `gorm:"type:varchar(32);not null" json:"status"`          // 状态快照
	EntitlementPhase string    `gorm:"type:varchar(32)" json:"entitlement_phase"`        // 权益阶段快照
	Collectability   string    `gorm:"type:varchar(32)" json:"collectability"`           // 可回收状态快照
	ChangedBy        string    `gorm:"type:varchar(64);not null" json:"changed_by"`      // 变更者（管理员ID或 SYSTEM）
	Note             string    `gorm:"type:varchar(512)" json:"note"`                    // 备注
	CreatedAt        time.Time `gorm:"index" json:"created_at"`                          // 创建时间
}

// TableName 指定表名
func (CommissionStatusHistory) TableName() string {
	return "commission_status_histories"
}
