package model

import "time"

// CompletionTurn 代表存储在 Redis 中、发送给大模型的单条上下文消息。
type CompletionTurn struct {
	Role      string    `json:"role"` // "system"、"user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
