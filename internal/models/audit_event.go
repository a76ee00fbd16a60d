package models

import "time"

// AuditEvent 审计事件（仅追加，不可修改）
type AuditEvent struct {
	ID         uint      `gorm:"primarykey" json:"id"`                            // 主键
	Action     string    `gorm:"type:varchar(64);not null;index" json:"action"`   // 事件动作
	EntityType string    `gorm:"type:varchar(48);not null;index" json:"entity_type"` // 实体类型
	EntityID   string    `gorm:"type:varchar(64);not null;index" json:"entity_id"`   // 实体ID
	Actor      string    `gorm:"type:varchar(64);not null;index" json:"actor"`    // 操作者（管理员ID或 SYSTEM）
	OldState   string    `gorm:"type:varchar(64)" json:"old_state"`               // 变更前状态
	NewState   string    `gorm:"type:varchar(64)" json:"new_state"`               // 变更后状态
	Reason     string    `gorm:"type:text" json:"reason"`                         // 原因
	Severity   string    `gorm:"type:varchar(16);not null;index" json:"severity"` // 严重级别 info/warning/high/critical
	RunID      string    `gorm:"type:varchar(64);index" json:"run_id"`            // 批次ID（定时任务产生的事件）
	DetailJSON JSON      `gorm:"type:json" json:"detail"`                         // 结构化明细
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                         // 创建时间
}

// TableName 指定表名
func (AuditEvent) TableName() string {
	return "audit_events"
}
