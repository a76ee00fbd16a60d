package models

import (
	"time"

	"gorm.io/gorm"
)

// Project 房地产投资项目
type Project struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                      // 主键
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`                    // 项目名称
	Status         string         `gorm:"type:varchar(32);not null;index" json:"status"`             // 状态 draft/published/archived
	InvestmentForm string         `gorm:"type:varchar(32);not null" json:"investment_form"`          // 投资形式 bond/loan/equity/convertible
	YieldPA        Money          `gorm:"type:decimal(10,2);not null;default:0" json:"yield_pa"`     // 年化收益率（百分比）
	OriginBrokerID *uint          `gorm:"index" json:"origin_broker_id,omitempty"`                   // 来源经纪人（首个激活预约时一次性写入）
	PublishedAt    *time.Time     `json:"published_at,omitempty"`                                    // 发布时间
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt      time.Time      `json:"updated_at"`                                                // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	OriginBroker *Broker `gorm:"foreignKey:OriginBrokerID" json:"origin_broker,omitempty"` // 来源经纪人
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}
