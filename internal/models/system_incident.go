package models

import "time"

// SystemIncident 系统事故记录（审计落库失败、SLA 违约等）
type SystemIncident struct {
	ID         uint       `gorm:"primarykey" json:"id"`                            // 主键
	Source     string     `gorm:"type:varchar(48);not null;index" json:"source"`   // 来源 audit_sink/sla_monitor
	Severity   string     `gorm:"type:varchar(16);not null;index" json:"severity"` // 严重级别
	Title      string     `gorm:"type:varchar(255);not null" json:"title"`         // 标题
	DetailJSON JSON       `gorm:"type:json" json:"detail"`                         // 结构化明细
	Status     string     `gorm:"type:varchar(16);not null;index" json:"status"`   // 状态 open/resolved
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                         // 创建时间
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`                           // 处理完成时间
}

// TableName 指定表名
func (SystemIncident) TableName() string {
	return "system_incidents"
}
