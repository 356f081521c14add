package counsel

import (
	"fmt"
	"strings"
)

// SuggestionID 是推荐消息的固定标识，会话内已存在该标识的消息时不再推荐。
const SuggestionID = "test-suggestion"

// TestTrigger 是对用户输入做测试触发检测的结果。
type TestTrigger struct {
	// Triggered 表示用户提到了测试（点名或“테스트/검사”）
	Triggered bool
	// Test 在能够确定具体测试时非空
	Test *PsychTest
}

// MatchTestTrigger 检测用户是否要求进行心理测试。
// 直接点名（测试名或 phq/gad/ssrs）立即命中；否则需要同时出现“테스트/검사”，
// 再用主题词确定具体测试，无法确定时只标记 Triggered。
func MatchTestTrigger(text string) TestTrigger {
	lower := strings.ToLower(text)
	for i := range tests {
		t := tests[i]
		if strings.Contains(lower, strings.ToLower(t.Name)) || containsAny(lower, t.triggers) {
			return TestTrigger{Triggered: true, Test: &t}
		}
	}
	if !strings.Contains(lower, "테스트") && !strings.Contains(lower, "검사") {
		return TestTrigger{}
	}
	for i := range tests {
		t := tests[i]
		if containsAny(lower, t.topics) {
			return TestTrigger{Triggered: true, Test: &t}
		}
	}
	return TestTrigger{Triggered: true}
}

// SuggestTests 按目录顺序返回与对话内容相关的测试，结果只取决于输入文本。
func SuggestTests(conversationText string) []PsychTest {
	lower := strings.ToLower(conversationText)
	var out []PsychTest
	for _, t := range tests {
		if containsAny(lower, t.suggestKeywords) {
			out = append(out, t)
		}
	}
	return out
}

// HasSuggestion 检查消息列表中是否已经有推荐消息。
func HasSuggestion(turns []Turn) bool {
	for _, t := range turns {
		if t.Kind == KindSuggestion || t.ID == SuggestionID {
			return true
		}
	}
	return false
}

// MaybeOfferSuggestion 在有候选测试且会话内尚未推荐过时生成推荐消息。
func MaybeOfferSuggestion(turns []Turn, suggestions []PsychTest) (Turn, bool) {
	if len(suggestions) == 0 || HasSuggestion(turns) {
		return Turn{}, false
	}
	var b strings.Builder
	b.WriteString("대화 내용을 보니 다음 심리 테스트가 도움이 될 수 있을 것 같아요:\n")
	for _, t := range suggestions {
		fmt.Fprintf(&b, "\n- %s: %s", t.Name, t.Description)
	}
	b.WriteString("\n\n원하시면 테스트 이름을 말씀해주세요. 물론 지금처럼 편하게 이야기를 이어가셔도 괜찮아요.")
	return Turn{ID: SuggestionID, Sender: SenderAI, Kind: KindSuggestion, Text: b.String()}, true
}
