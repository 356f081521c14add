package model

import (
	"encoding/json"
	"time"

	"yourmind-go/internal/counsel"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatSession 对应于数据库中的 'chat_sessions' 表，是一次咨询会话。
type ChatSession struct {
	ID     string `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID string `gorm:"type:varchar(36);index;not null" json:"userId"`
	Title  string `gorm:"type:varchar(255);not null" json:"title"`
	// ModeID 与 TestID 至多一个非空，决定本会话的系统提示词
	ModeID string `gorm:"type:varchar(32)" json:"modeId,omitempty"`
	TestID string `gorm:"type:varchar(32)" json:"testId,omitempty"`
	// CompletionToken 关联 Redis 中的对话上下文
	CompletionToken string    `gorm:"type:varchar(64)" json:"-"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// ChatMessage 对应于数据库中的 'chat_messages' 表。
type ChatMessage struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID string `gorm:"type:varchar(36);index;not null" json:"sessionId"`
	// Sender 为 user 或 ai
	Sender string `gorm:"type:varchar(8);not null" json:"sender"`
	// Kind 为 chat、intro、test 或 suggestion
	Kind    string `gorm:"type:varchar(16);not null;default:chat" json:"kind"`
	Content string `gorm:"type:text;not null" json:"content"`
	// RiskLevel 仅 AI 回复携带，保存完整的风险评估 JSON
	RiskLevel datatypes.JSON `gorm:"type:json" json:"riskLevel,omitempty"`
	Timestamp time.Time      `gorm:"autoCreateTime;index" json:"timestamp"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	return nil
}

// EncodeRisk 把风险评估序列化为可存储的 JSON，nil 表示不携带。
func EncodeRisk(r *counsel.RiskAssessment) datatypes.JSON {
	if r == nil {
		return nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// Risk 解析存储的风险评估，不存在或格式错误时返回 nil。
func (m ChatMessage) Risk() *counsel.RiskAssessment {
	if len(m.RiskLevel) == 0 {
		return nil
	}
	var r counsel.RiskAssessment
	if err := json.Unmarshal(m.RiskLevel, &r); err != nil {
		return nil
	}
	return &r
}

// Turn 转换为与存储无关的对话消息。
func (m ChatMessage) Turn() counsel.Turn {
	return counsel.Turn{
		ID:     m.ID,
		Sender: counsel.Sender(m.Sender),
		Kind:   counsel.Kind(m.Kind),
		Text:   m.Content,
	}
}

// Turns 批量转换消息。
func Turns(messages []ChatMessage) []counsel.Turn {
	out := make([]counsel.Turn, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Turn())
	}
	return out
}
