package models

import (
	"time"

	"gorm.io/gorm"
)

// Broker 经纪人
type Broker struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                 // 主键
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`               // 姓名
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`  // 邮箱
	Status    string         `gorm:"type:varchar(32);not null;index" json:"status"`        // 状态 active/suspended
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                           // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                       // 软删除时间
}

// TableName 指定表名
func (Broker) TableName() string {
	return "brokers"
}
