package models

import (
	"time"

	"gorm.io/gorm"
)

// InvestorMatchingResult 投资人与票据的匹配结果
//
// (investor_id, ticket_id) 组合唯一，保证每对至多一行：
// 重算命中已有行时原地更新并递增 recalculation_count。
type InvestorMatchingResult struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                                  // 主键
	InvestorID         uint           `gorm:"not null;index;index:idx_investor_ticket_unique,unique" json:"investor_id"` // 投资人ID
	TicketID           uint           `gorm:"not null;index;index:idx_investor_ticket_unique,unique" json:"ticket_id"`   // 票据ID
	MatchScore         float64        `gorm:"not null;default:0" json:"match_score"`                                 // 匹配得分 0-1
	MatchQuality       string         `gorm:"type:varchar(16);not null;index" json:"match_quality"`                  // 质量分级 high/medium/low
	MatchedAttributes  StringArray    `gorm:"type:json" json:"matched_attributes"`                                   // 命中的属性列表
	IsActive           bool           `gorm:"not null;default:true;index" json:"is_active"`                          // 是否有效
	RecalculationCount int            `gorm:"not null;default:0" json:"recalculation_count"`                         // 重算次数
	LastValidatedAt    *time.Time     `json:"last_validated_at,omitempty"`                                           // 最近校验时间
	ValidationRunID    string         `gorm:"type:varchar(64);index" json:"validation_run_id"`                       // 最近校验批次ID
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                               // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                               // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                                        // 软删除时间

	Investor Investor `gorm:"foreignKey:InvestorID" json:"investor,omitempty"` // 投资人
	Ticket   Ticket   `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`     // 票据
}

// TableName 指定表名
func (InvestorMatchingResult) TableName() string {
	return "investor_matching_results"
}
