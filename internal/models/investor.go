package models

import (
	"time"

	"gorm.io/gorm"
)

// Investor 投资人及其偏好画像
type Investor struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                   // 主键
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`                 // 姓名
	State           string         `gorm:"type:varchar(32);not null;index" json:"state"`           // 状态 active/archived
	InvestmentForms StringArray    `gorm:"type:json" json:"investment_forms"`                      // 偏好投资形式
	YieldMin        Money          `gorm:"type:decimal(10,2);not null;default:0" json:"yield_min"` // 期望收益率下限（百分比）
	YieldMax        Money          `gorm:"type:decimal(10,2);not null;default:0" json:"yield_max"` // 期望收益率上限（百分比）
	SecurityTypes   StringArray    `gorm:"type:json" json:"security_types"`                        // 偏好担保类型
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt       time.Time      `json:"updated_at"`                                             // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                         // 软删除时间
}

// TableName 指定表名
func (Investor) TableName() string {
	return "investors"
}
