package counsel

import "strings"

// Sender 标识消息的发送方。
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Kind 区分消息的用途，推荐消息依赖它做去重。
type Kind string

const (
	KindChat       Kind = "chat"
	KindIntro      Kind = "intro"
	KindTest       Kind = "test"
	KindSuggestion Kind = "suggestion"
)

// Turn 是与存储无关的一条对话消息。
type Turn struct {
	ID     string `json:"id,omitempty"`
	Sender Sender `json:"sender"`
	Kind   Kind   `json:"kind"`
	Text   string `json:"text"`
}

// Transcript 把所有消息文本拼接成一个小写字符串，用于关键词匹配。
func Transcript(turns []Turn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, t.Text)
	}
	return strings.ToLower(strings.Join(parts, " "))
}
