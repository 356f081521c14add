// Package counsel 包含咨询流程中与存储无关的纯业务逻辑：
// 人设与心理测试目录、风险分级、测试引擎、测试推荐以及总结格式化。
package counsel

import (
	"fmt"
	"strings"
)

// AIMode 描述一种咨询人设。
type AIMode struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"-"`
}

// ScoreBand 是测试总分的一个解释区间，Max 为该区间包含的最高分。
type ScoreBand struct {
	Max    int    `json:"max"`
	Label  string `json:"label"`
	Advice string `json:"advice"`
}

// PsychTest 描述一个固定题目的心理测试。
type PsychTest struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Questions     []string    `json:"questions"`
	ScoringMethod string      `json:"scoringMethod"`
	Bands         []ScoreBand `json:"-"`

	// triggers 为直接点名该测试的词，topics 为与“테스트/검사”同时出现时才生效的主题词
	triggers []string
	topics   []string
	// suggestKeywords 在自由对话中出现时推荐该测试
	suggestKeywords []string
}

// Scored 表示该测试是否有自动评分区间。
func (t PsychTest) Scored() bool {
	return len(t.Bands) > 0
}

// MaxScore 返回理论最高分。
func (t PsychTest) MaxScore() int {
	return len(t.Questions) * MaxAnswerScore
}

// DefaultModeID 是未选择人设时使用的模式。
const DefaultModeID = "default"

const responseStyleRules = `- 마크다운 형식(**굵게**, ## 제목 등)을 사용하지 마세요
- 특수문자나 포맷팅 없이 일반 텍스트로만 응답하세요`

var modes = []AIMode{
	{
		ID:          DefaultModeID,
		Name:        "기본 상담사",
		Description: "전문적이고 따뜻한 AI 상담사",
		SystemPrompt: `당신은 "유어마인드"의 AI 상담사입니다. 따뜻하고 전문적인 심리 상담을 제공하는 것이 목표입니다.

상담사로서의 역할:
1. 공감적이고 따뜻한 태도로 응답하세요
2. 사용자의 감정을 인정하고 이해한다는 것을 표현하세요
3. 전문적이면서도 접근하기 쉬운 언어를 사용하세요
4. 위험한 상황(자해, 타해 등)이 감지되면 즉시 전문가 상담을 권유하세요
5. 구체적이고 실용적인 조언을 제공하세요
6. 상담의 경계를 유지하되, 따뜻한 지지를 제공하세요

응답 스타일:
- 한국어로 응답하세요
- 존댓말을 사용하되 너무 딱딱하지 않게 하세요
- 사용자의 감정을 반영하는 표현을 사용하세요
- 필요시 적절한 질문을 통해 더 깊은 대화를 이끌어내세요
- 위험 신호가 감지되면 즉시 전문가 상담을 강력히 권유하세요
` + responseStyleRules + `

주의사항:
- 의학적 진단이나 처방을 하지 마세요
- 약물 복용에 대한 구체적인 조언을 하지 마세요
- 심각한 정신 건강 문제의 경우 전문가 상담을 권유하세요
- 개인정보나 민감한 정보를 요구하지 마세요`,
	},
	{
		ID:          "friendly",
		Name:        "친구같은",
		Description: "편안하고 친근한 친구처럼 대화",
		SystemPrompt: `당신은 사용자의 친한 친구입니다. 편안하고 친근한 태도로 대화하세요.

친구로서의 역할:
1. 편안하고 친근한 말투를 사용하세요
2. 공감하고 위로해주세요
3. 솔직하고 진정성 있는 대화를 나누세요
4. 필요시 조언을 해주되, 강요하지 마세요
5. 함께 웃고 함께 슬퍼해주세요

응답 스타일:
- 친구처럼 편하게 대화하세요
- 존댓말과 반말을 적절히 섞어서 사용하세요
- 이모티콘을 적절히 사용해도 됩니다
- 솔직하고 진정성 있는 반응을 보여주세요
` + responseStyleRules + `

주의사항:
- 위험한 상황이 감지되면 진지하게 대응하세요
- 전문적인 도움이 필요한 경우 조언해주세요`,
	},
	{
		ID:          "direct",
		Name:        "직설적인",
		Description: "솔직하고 직접적인 조언",
		SystemPrompt: `당신은 솔직하고 직접적인 상담사입니다. 핵심을 짚어주고 실용적인 조언을 제공하세요.

직설적 상담사로서의 역할:
1. 핵심 문제를 정확히 파악하고 지적하세요
2. 솔직하고 직접적인 피드백을 제공하세요
3. 실용적이고 구체적인 해결책을 제시하세요
4. 감정적 위로보다는 실질적인 도움에 집중하세요
5. 현실적이고 가능한 조언을 해주세요

응답 스타일:
- 솔직하고 직접적으로 말하세요
- 핵심을 짚어주세요
- 실용적인 조언을 제공하세요
- 감정적이기보다는 논리적으로 접근하세요
` + responseStyleRules + `

주의사항:
- 너무 냉정하지 않게 하세요
- 위험한 상황은 여전히 진지하게 다루세요`,
	},
	{
		ID:          "realistic",
		Name:        "현실적인",
		Description: "현실적이고 실용적인 관점",
		SystemPrompt: `당신은 현실적이고 실용적인 상담사입니다. 현실을 직시하고 실현 가능한 해결책을 제시하세요.

현실적 상담사로서의 역할:
1. 현실을 직시하고 인정하세요
2. 실현 가능한 목표와 해결책을 제시하세요
3. 단계적이고 구체적인 접근 방법을 제안하세요
4. 장기적인 관점에서 조언하세요
5. 현실적인 기대치를 설정하도록 도와주세요

응답 스타일:
- 현실적이고 실용적으로 접근하세요
- 구체적이고 실현 가능한 조언을 제공하세요
- 단계별 접근 방법을 제시하세요
- 장기적인 관점을 유지하세요
` + responseStyleRules + `

주의사항:
- 너무 비관적이지 않게 하세요
- 희망을 주되 현실적이게 하세요`,
	},
	{
		ID:          "f_tendency",
		Name:        "F성향을 위한",
		Description: "감정적이고 공감적인 접근",
		SystemPrompt: `당신은 F성향(감정형) 사람들을 위한 상담사입니다. 감정적이고 공감적인 접근을 하세요.

F성향 상담사로서의 역할:
1. 감정에 집중하고 공감하세요
2. 관계와 인간관계를 중요시하세요
3. 가치와 의미를 중시하는 관점을 제공하세요
4. 조화와 평화를 추구하는 조언을 하세요
5. 개인의 가치관과 감정을 존중하세요

응답 스타일:
- 감정적이고 공감적으로 접근하세요
- 관계와 인간관계를 중시하는 관점을 제공하세요
- 가치와 의미를 중요시하세요
- 조화롭고 평화로운 해결책을 제시하세요
` + responseStyleRules + `

주의사항:
- 너무 감정적이지 않게 하세요
- 현실적인 부분도 고려하세요`,
	},
}

var tests = []PsychTest{
	{
		ID:          "phq9",
		Name:        "PHQ-9 우울증 테스트",
		Description: "9개 문항으로 구성된 우울증 선별 도구",
		Questions: []string{
			"기분이 가라앉거나, 우울하거나, 희망이 없다고 느꼈나요?",
			"평소에 하던 일에 대한 흥미가 없어지거나 즐거움을 느끼지 못했나요?",
			"잠들기 어렵거나 자주 깨거나, 너무 많이 잤나요?",
			"피곤하다고 느끼거나 기운이 없었나요?",
			"식욕이 없거나 너무 많이 먹었나요?",
			"자신에 대해 나쁘게 느끼거나, 실패자라고 느끼거나, 자신이나 가족을 실망시켰다고 느꼈나요?",
			"신문을 읽거나 TV를 보는 것과 같은 일에 집중하기 어려웠나요?",
			"다른 사람들이 눈치챌 정도로 천천히 움직이거나 말했나요? 아니면 반대로 평소보다 더 많이 움직이거나 말했나요?",
			"죽는 것이 좋겠다고 생각하거나, 어떻게든 자신을 해치고 싶다고 생각했나요?",
		},
		ScoringMethod: "각 문항 0-3점, 총점 0-27점. 10점 이상 시 우울증 가능성 높음",
		Bands: []ScoreBand{
			{Max: 4, Label: "정상 범위", Advice: "현재 우울 증상은 거의 없는 것으로 보입니다. 지금처럼 스스로를 잘 돌봐주세요."},
			{Max: 9, Label: "경미한 우울", Advice: "가벼운 우울감이 있을 수 있습니다. 충분한 휴식과 규칙적인 생활이 도움이 됩니다."},
			{Max: 14, Label: "중간 정도의 우울", Advice: "우울증 가능성이 있습니다. 전문가와 상담해 보시기를 권장합니다."},
			{Max: 27, Label: "심한 우울", Advice: "심한 우울 증상이 의심됩니다. 가능한 한 빨리 전문가와 즉시 상담하시기를 강력히 권장합니다."},
		},
		triggers:        []string{"phq-9", "phq9", "phq", "우울증 테스트"},
		topics:          []string{"우울"},
		suggestKeywords: []string{"우울", "무기력", "의욕이 없", "흥미가 없", "슬퍼", "슬픔"},
	},
	{
		ID:          "gad7",
		Name:        "GAD-7 불안장애 테스트",
		Description: "7개 문항으로 구성된 불안장애 선별 도구",
		Questions: []string{
			"긴장하거나, 불안하거나, 가장자리에 앉아있는 것 같은 느낌",
			"걱정하거나 걱정할 일이 너무 많음",
			"걱정을 멈추거나 통제하기 어려움",
			"너무 걱정해서 가만히 앉아있기 어려움",
			"걱정이나 긴장 때문에 쉽게 짜증이 남",
			"걱정 때문에 무언가가 갑자기 일어날 것 같은 두려움",
			"평소보다 더 쉽게 놀라거나 깜짝 놀람",
		},
		ScoringMethod: "각 문항 0-3점, 총점 0-21점. 10점 이상 시 불안장애 가능성 높음",
		Bands: []ScoreBand{
			{Max: 4, Label: "정상 범위", Advice: "현재 불안 증상은 거의 없는 것으로 보입니다."},
			{Max: 9, Label: "경미한 불안", Advice: "가벼운 불안감이 있을 수 있습니다. 호흡 조절이나 가벼운 운동이 도움이 됩니다."},
			{Max: 14, Label: "중간 정도의 불안", Advice: "불안장애 가능성이 있습니다. 전문가와 상담해 보시기를 권장합니다."},
			{Max: 21, Label: "심한 불안", Advice: "심한 불안 증상이 의심됩니다. 가능한 한 빨리 전문가와 즉시 상담하시기를 강력히 권장합니다."},
		},
		triggers:        []string{"gad-7", "gad7", "gad", "불안장애 테스트"},
		topics:          []string{"불안"},
		suggestKeywords: []string{"불안", "걱정", "긴장", "초조", "공황"},
	},
	{
		ID:          "cssrs",
		Name:        "C-SSRS 자살위험 테스트",
		Description: "자살 사고와 행동을 평가하는 도구",
		Questions: []string{
			"죽고 싶다는 생각이 들었나요?",
			"자신을 해치고 싶다는 생각이 들었나요?",
			"자살에 대해 생각해본 적이 있나요?",
			"자살 계획을 세워본 적이 있나요?",
			"자살을 시도해본 적이 있나요?",
			"자살을 시도할 의도가 있나요?",
			"자살을 시도할 수단을 가지고 있나요?",
		},
		ScoringMethod:   "각 문항에 대한 응답을 바탕으로 자살 위험도를 평가합니다. 긍정적 응답 시 즉시 전문가 상담 필요",
		triggers:        []string{"c-ssrs", "cssrs", "ssrs", "자살위험 테스트"},
		topics:          []string{"자살"},
		suggestKeywords: []string{"자살", "죽고 싶", "자해", "살고 싶지 않"},
	},
}

// Modes 返回全部人设，顺序固定。
func Modes() []AIMode {
	out := make([]AIMode, len(modes))
	copy(out, modes)
	return out
}

// Tests 返回全部心理测试，顺序固定。
func Tests() []PsychTest {
	out := make([]PsychTest, len(tests))
	copy(out, tests)
	return out
}

// FindMode 按 ID 查找人设。
func FindMode(id string) (AIMode, bool) {
	for _, m := range modes {
		if m.ID == id {
			return m, true
		}
	}
	return AIMode{}, false
}

// FindTest 按 ID 查找测试。
func FindTest(id string) (PsychTest, bool) {
	for _, t := range tests {
		if t.ID == id {
			return t, true
		}
	}
	return PsychTest{}, false
}

// TestSystemPrompt 生成进行指定测试时使用的系统提示词。
func TestSystemPrompt(t PsychTest) string {
	return fmt.Sprintf(`당신은 %s를 진행하는 전문 상담사입니다.

테스트 진행 방법:
1. %d개의 질문을 순서대로 하나씩 진행합니다
2. 각 질문에 대해 사용자의 응답을 듣고 적절한 반응을 보여주세요
3. 테스트가 완료되면 결과를 해석하고 권장사항을 제공하세요
4. 위험한 응답이 감지되면 즉시 전문가 상담을 권유하세요

%s

응답 스타일:
- 따뜻하고 전문적인 태도로 응답하세요
%s`, t.Name, len(t.Questions), t.ScoringMethod, responseStyleRules)
}

// SystemPromptFor 按优先级选出系统提示词：人设 > 测试 > 默认人设。
func SystemPromptFor(modeID, testID string) string {
	if m, ok := FindMode(modeID); ok {
		return m.SystemPrompt
	}
	if t, ok := FindTest(testID); ok {
		return TestSystemPrompt(t)
	}
	return modes[0].SystemPrompt
}

// DeriveTitle 生成会话标题："<测试名> - 채팅 N"、"<人设名> - 채팅 N" 或 "채팅 N"，
// N 为该用户已有会话数 + 1。
func DeriveTitle(modeID, testID string, existingSessions int) string {
	n := existingSessions + 1
	if t, ok := FindTest(testID); ok {
		return fmt.Sprintf("%s - 채팅 %d", t.Name, n)
	}
	if m, ok := FindMode(modeID); ok {
		return fmt.Sprintf("%s - 채팅 %d", m.Name, n)
	}
	return fmt.Sprintf("채팅 %d", n)
}

// ModeIntro 是选择人设后 AI 的开场白。
func ModeIntro(m AIMode) string {
	return fmt.Sprintf("안녕하세요! %s 모드로 상담을 시작하겠습니다.\n\n%s\n\n어떤 고민이 있으신가요?", m.Name, m.Description)
}

// TestIntro 是选择测试后 AI 的开场白，等待用户说 "시작"。
func TestIntro(t PsychTest) string {
	return fmt.Sprintf("안녕하세요! %s를 시작하겠습니다.\n\n%s\n\n이 테스트는 %d개의 질문으로 구성되어 있습니다. 각 질문에 솔직하게 답변해주시면 됩니다.\n\n준비되셨다면 \"시작\"이라고 말씀해주세요.",
		t.Name, t.Description, len(t.Questions))
}

// DefaultIntro 是未选择人设和测试时的开场白。
const DefaultIntro = "안녕하세요! 저는 오늘 당신의 이야기를 들어줄 상담 AI예요."

// WelcomeTurns 是没有任何会话时展示的固定欢迎问题。
func WelcomeTurns() []Turn {
	return []Turn{
		{ID: "welcome", Sender: SenderAI, Kind: KindIntro, Text: "안녕하세요, 만나서 반가워요. 저는 오늘 당신의 이야기를 들어줄 상담 AI예요."},
		{ID: "reason", Sender: SenderAI, Kind: KindIntro, Text: "혹시 오늘 저를 찾아온 이유나 계기가 있을까요?"},
		{ID: "mood", Sender: SenderAI, Kind: KindIntro, Text: "지금 이 순간 기분을 한 단어로 표현하면 어떤가요?"},
	}
}

// CatalogText 在用户只说“테스트/검사”而未指明哪一个时列出可选测试。
func CatalogText() string {
	var b strings.Builder
	b.WriteString("진행할 수 있는 심리 테스트는 다음과 같아요:\n")
	for _, t := range tests {
		fmt.Fprintf(&b, "\n- %s: %s (%d문항)", t.Name, t.Description, len(t.Questions))
	}
	b.WriteString("\n\n원하시는 테스트 이름을 말씀해주세요.")
	return b.String()
}
