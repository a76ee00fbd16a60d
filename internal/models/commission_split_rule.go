package models

import (
	"time"

	"gorm.io/gorm"
)

// CommissionSplitRule 佣金分成规则
//
// 规则一经引用即视为不可变：调整比例时新增规则并停用旧规则，不允许原地修改。
type CommissionSplitRule struct {
	ID                       uint           `gorm:"primarykey" json:"id"`                                  // 主键
	Name                     string         `gorm:"type:varchar(255);not null" json:"name"`                // 规则名称
	Scope                    string         `gorm:"type:varchar(32);not null;index" json:"scope"`          // 范围 global_default/project_override
	ProjectID                *uint          `gorm:"index" json:"project_id,omitempty"`                     // 项目ID（仅 project_override）
	PlatformFeePercent       int            `gorm:"not null;default:0" json:"platform_fee_percent"`        // 平台费比例（整数）
	OriginBrokerPercent      int            `gorm:"not null;default:0" json:"origin_broker_percent"`       // 来源经纪人比例（整数）
	ReservationBrokerPercent int            `gorm:"not null;default:0" json:"reservation_broker_percent"`  // 预约经纪人比例（整数）
	IsActive                 bool           `gorm:"not null;default:true;index" json:"is_active"`          // 是否启用
	CreatedBy                string         `gorm:"type:varchar(64);not null" json:"created_by"`           // 创建者（管理员ID或 SYSTEM）
	CreatedAt                time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt                time.Time      `json:"updated_at"`                                            // 更新时间
	DeletedAt                gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间
}

// TableName 指定表名
func (CommissionSplitRule) TableName() string {
	return "commission_split_rules"
}
