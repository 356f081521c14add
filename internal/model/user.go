// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile 对应于数据库中的 'user_profiles' 表。
type UserProfile struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	Email       string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password    string `gorm:"type:varchar(255);not null" json:"-"`
	AvatarColor string `gorm:"type:varchar(20)" json:"avatar_color"`
	Phone       string `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Location    string `gorm:"type:varchar(255)" json:"location,omitempty"`
	// Role 为 USER 或 ADMIN
	Role string `gorm:"type:varchar(20);not null;default:USER" json:"role"`
	// 三项自评分数，范围 0-100
	StressLevel     int       `gorm:"not null;default:0" json:"stress_level"`
	AnxietyLevel    int       `gorm:"not null;default:0" json:"anxiety_level"`
	DepressionLevel int       `gorm:"not null;default:0" json:"depression_level"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// BeforeCreate 在插入前补全 UUID 主键。
func (u *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
