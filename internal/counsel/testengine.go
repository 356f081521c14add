package counsel

import (
	"errors"
	"fmt"
	"strings"
)

// MaxAnswerScore 是单题最高分。
const MaxAnswerScore = 3

var (
	ErrUnknownTest  = errors.New("unknown psychological test")
	ErrNoActiveTest = errors.New("no active test run")
)

// TestRun 是一个会话内测试的进度。
// 已选择但未开始时 TestID 非空且 IsActive 为 false；答完最后一题后整体清零。
type TestRun struct {
	TestID          string `json:"testId"`
	CurrentQuestion int    `json:"currentQuestion"`
	Answers         []int  `json:"answers"`
	TestStarted     bool   `json:"testStarted"`
	IsActive        bool   `json:"isActive"`
}

// Selected 表示已经选择了测试（无论是否开始）。
func (r TestRun) Selected() bool {
	return r.TestID != ""
}

// AwaitingStart 表示测试已选择、正在等待用户说开始。
func (r TestRun) AwaitingStart() bool {
	return r.Selected() && !r.TestStarted
}

// TestResult 是一次完整测试的结果。
type TestResult struct {
	TestID     string     `json:"testId"`
	TestName   string     `json:"testName"`
	TotalScore int        `json:"totalScore"`
	MaxScore   int        `json:"maxScore"`
	Answers    []int      `json:"answers"`
	Band       *ScoreBand `json:"band,omitempty"`
	Message    string     `json:"message"`
}

// AnswerOutcome 是提交一次回答后的结果。
// Accepted 为 false 时 Prompt 是重新提问，进度不变。
type AnswerOutcome struct {
	Accepted bool        `json:"accepted"`
	Prompt   string      `json:"prompt"`
	Result   *TestResult `json:"result,omitempty"`
}

// SelectTest 选择一个测试，返回等待开始的 TestRun 和开场白。
func SelectTest(testID string) (TestRun, string, error) {
	t, ok := FindTest(testID)
	if !ok {
		return TestRun{}, "", fmt.Errorf("%w: %s", ErrUnknownTest, testID)
	}
	return TestRun{TestID: t.ID, Answers: []int{}}, TestIntro(t), nil
}

// IsStartTrigger 判断用户是否表示开始测试。
func IsStartTrigger(text string) bool {
	return strings.Contains(text, "시작") || strings.Contains(text, "네")
}

// BeginIfTriggered 在等待开始的状态下遇到开始指令时开启测试并返回第一题。
func BeginIfTriggered(text string, run TestRun) (TestRun, string, bool) {
	if !run.AwaitingStart() || !IsStartTrigger(text) {
		return run, "", false
	}
	t, ok := FindTest(run.TestID)
	if !ok {
		return run, "", false
	}
	run.TestStarted = true
	run.IsActive = true
	run.CurrentQuestion = 0
	run.Answers = []int{}
	return run, FormatQuestion(t, 0), true
}

// SubmitAnswer 记录一次回答。无法解析的回答不会推进进度，
// 最后一题答完后返回结果以及清零的 TestRun。
func SubmitAnswer(text string, run TestRun) (AnswerOutcome, TestRun, error) {
	if !run.IsActive {
		return AnswerOutcome{}, run, ErrNoActiveTest
	}
	t, ok := FindTest(run.TestID)
	if !ok {
		return AnswerOutcome{}, TestRun{}, fmt.Errorf("%w: %s", ErrUnknownTest, run.TestID)
	}
	if run.CurrentQuestion < 0 || run.CurrentQuestion >= len(t.Questions) {
		return AnswerOutcome{}, TestRun{}, fmt.Errorf("test run %s out of range at question %d", run.TestID, run.CurrentQuestion)
	}

	score, ok := ParseAnswer(text)
	if !ok {
		return AnswerOutcome{Prompt: clarification + FormatQuestion(t, run.CurrentQuestion)}, run, nil
	}

	answers := make([]int, 0, len(run.Answers)+1)
	answers = append(answers, run.Answers...)
	answers = append(answers, score)
	run.Answers = answers
	run.CurrentQuestion++

	if run.CurrentQuestion < len(t.Questions) {
		return AnswerOutcome{Accepted: true, Prompt: FormatQuestion(t, run.CurrentQuestion)}, run, nil
	}

	result := Evaluate(t, answers)
	return AnswerOutcome{Accepted: true, Prompt: result.Message, Result: &result}, TestRun{}, nil
}

// Evaluate 计算总分并匹配解释区间。无评分区间的测试只报告总分并提示联系专业人士。
func Evaluate(t PsychTest, answers []int) TestResult {
	total := 0
	for _, a := range answers {
		total += a
	}
	res := TestResult{
		TestID:     t.ID,
		TestName:   t.Name,
		TotalScore: total,
		MaxScore:   t.MaxScore(),
		Answers:    answers,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s가 완료되었습니다.\n\n총점: %d점 / %d점\n", t.Name, total, res.MaxScore)
	if !t.Scored() {
		b.WriteString("\n이 테스트는 점수 구간으로 판정하지 않습니다. ")
		if total > 0 {
			b.WriteString("한 문항이라도 해당된다고 답하셨다면 즉시 전문가와 상담하시기를 강력히 권장합니다.")
		} else {
			b.WriteString("현재 응답에서는 위험 신호가 확인되지 않았지만, 힘든 순간이 오면 언제든 전문가의 도움을 받으세요.")
		}
		b.WriteString("\n\n자살예방상담전화 109, 정신건강위기상담 1577-0199에서 24시간 도움을 받을 수 있습니다.")
		res.Message = b.String()
		return res
	}

	band := t.Bands[len(t.Bands)-1]
	for _, candidate := range t.Bands {
		if total <= candidate.Max {
			band = candidate
			break
		}
	}
	res.Band = &band
	fmt.Fprintf(&b, "결과: %s\n\n%s", band.Label, band.Advice)
	res.Message = b.String()
	return res
}

const answerLegend = "0: 전혀 없음\n1: 며칠 동안 (가끔)\n2: 일주일 이상 (보통)\n3: 거의 매일 (자주)"

const clarification = "답변을 이해하지 못했어요. 0부터 3 사이의 숫자로 답하시거나 '전혀', '가끔', '보통', '자주'처럼 표현해 주세요.\n\n"

// FormatQuestion 生成第 i 题（从 0 开始）的提问文本。
func FormatQuestion(t PsychTest, i int) string {
	return fmt.Sprintf("질문 %d/%d: %s\n\n%s", i+1, len(t.Questions), t.Questions[i], answerLegend)
}

var exactAnswers = map[string]int{
	"0": 0, "1": 1, "2": 2, "3": 3,
	"영": 0, "공": 0, "없음": 0, "전혀": 0,
	"일": 1, "하나": 1, "가끔": 1, "조금": 1,
	"이": 2, "둘": 2, "보통": 2, "종종": 2,
	"삼": 3, "셋": 3, "자주": 3, "항상": 3,
}

// 按顺序匹配，先命中者生效
var answerHeuristics = []struct {
	keywords []string
	score    int
}{
	{[]string{"전혀", "없", "안"}, 0},
	{[]string{"조금", "가끔", "약간"}, 1},
	{[]string{"보통", "중간", "어느 정도"}, 2},
	{[]string{"매우", "자주", "항상"}, 3},
}

// ParseAnswer 把自由文本回答解析为 0..3 分。
// 依次尝试精确数字、韩文数词/程度词、子串启发式；都不匹配时返回 false，不会截断越界数字。
func ParseAnswer(text string) (int, bool) {
	t := strings.TrimSpace(text)
	t = strings.TrimRight(t, ".!?~ ")
	if t == "" {
		return 0, false
	}
	if v, ok := exactAnswers[t]; ok {
		return v, true
	}
	if isDigits(t) {
		// 超出 0..3 的数字视为无效
		return 0, false
	}
	for _, h := range answerHeuristics {
		for _, k := range h.keywords {
			if strings.Contains(t, k) {
				return h.score, true
			}
		}
	}
	return 0, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
