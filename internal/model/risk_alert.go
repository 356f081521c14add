package model

import "time"

// RiskAlert 对应于数据库中的 'risk_alerts' 表，记录触发高风险分级的对话。
type RiskAlert struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	SessionID string    `gorm:"type:varchar(36);index;not null" json:"sessionId"`
	MessageID string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"messageId"`
	Level     string    `gorm:"type:varchar(16);not null" json:"level"`
	Advisory  string    `gorm:"type:text" json:"advisory"`
	Excerpt   string    `gorm:"type:text" json:"excerpt"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (RiskAlert) TableName() string {
	return "risk_alerts"
}
