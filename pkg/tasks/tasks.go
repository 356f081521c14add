// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

// RiskAlertTask 表示一次高风险对话告警，由聊天流程产生、后台消费者落库。
type RiskAlertTask struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	MessageID string    `json:"message_id"`
	Level     string    `json:"level"`
	Advisory  string    `json:"advisory"`
	Excerpt   string    `json:"excerpt"`
	CreatedAt time.Time `json:"created_at"`
}
