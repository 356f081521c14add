package counsel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultScore 是解析失败时各项分数的默认值（量表中点）。
const DefaultScore = 5

const (
	defaultNarrative      = "요약을 생성할 수 없습니다."
	defaultRecommendation = "권장사항을 생성할 수 없습니다."
)

// Scores 是总结中的四项心理状态评分，范围 1-10。
type Scores struct {
	Stress     int `json:"stress"`
	Depression int `json:"depression"`
	Anxiety    int `json:"anxiety"`
	Overall    int `json:"overall"`
}

// Summary 是从模型回复中解析出的咨询总结。
type Summary struct {
	Narrative      string `json:"summary"`
	Scores         Scores `json:"scores"`
	Recommendation string `json:"recommendations"`
}

var (
	narrativeRe      = regexp.MustCompile(`(?s)요약:\s*(.*?)(?:\n\s*스트레스수준:|\z)`)
	stressRe         = regexp.MustCompile(`스트레스수준:\s*(\d+)`)
	depressionRe     = regexp.MustCompile(`우울감수준:\s*(\d+)`)
	anxietyRe        = regexp.MustCompile(`불안감수준:\s*(\d+)`)
	overallRe        = regexp.MustCompile(`전반적심리상태:\s*(\d+)`)
	recommendationRe = regexp.MustCompile(`(?s)권장사항:\s*(.*)\z`)
)

// BuildSummaryPrompt 把完整对话嵌入固定格式的总结提示词。
func BuildSummaryPrompt(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		speaker := "AI"
		if t.Sender == SenderUser {
			speaker = "사용자"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, t.Text))
	}
	return `다음 대화를 요약해주세요. 요약 후에 다음 항목들을 점수로 평가해주세요:

대화 내용:
` + strings.Join(lines, "\n") + `

다음 형식으로만 응답해주세요 (마크다운이나 특수문자 사용하지 마세요):

요약: [대화 내용 요약]

스트레스수준: [1-10점]
우울감수준: [1-10점]
불안감수준: [1-10점]
전반적심리상태: [1-10점]

권장사항: [상황에 맞는 조언]`
}

// ParseSummary 逐字段解析模型回复，缺失或格式错误的字段回落到默认值，不会返回错误。
func ParseSummary(reply string) (s Summary) {
	s = Summary{
		Narrative:      defaultNarrative,
		Recommendation: defaultRecommendation,
		Scores:         Scores{Stress: DefaultScore, Depression: DefaultScore, Anxiety: DefaultScore, Overall: DefaultScore},
	}
	defer func() {
		if r := recover(); r != nil {
			s = Summary{
				Narrative:      defaultNarrative,
				Recommendation: defaultRecommendation,
				Scores:         Scores{Stress: DefaultScore, Depression: DefaultScore, Anxiety: DefaultScore, Overall: DefaultScore},
			}
		}
	}()

	if m := narrativeRe.FindStringSubmatch(reply); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			s.Narrative = v
		}
	}
	if m := recommendationRe.FindStringSubmatch(reply); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			s.Recommendation = v
		}
	}
	s.Scores.Stress = matchScore(stressRe, reply)
	s.Scores.Depression = matchScore(depressionRe, reply)
	s.Scores.Anxiety = matchScore(anxietyRe, reply)
	s.Scores.Overall = matchScore(overallRe, reply)
	return s
}

func matchScore(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return DefaultScore
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultScore
	}
	return v
}

// ScoreLabel 把 1-10 的分数映射为 낮음/보통/높음。
func ScoreLabel(score int) string {
	switch {
	case score <= 3:
		return "낮음"
	case score <= 6:
		return "보통"
	default:
		return "높음"
	}
}

// FormatSummary 生成展示给用户的总结文本。
func FormatSummary(s Summary) string {
	return fmt.Sprintf(`**대화 요약**

%s

**심리 상태 점수**

스트레스 수준: %d/10
우울감 수준: %d/10
불안감 수준: %d/10
전반적인 심리 상태: %d/10

**권장사항**

%s`,
		s.Narrative,
		s.Scores.Stress,
		s.Scores.Depression,
		s.Scores.Anxiety,
		s.Scores.Overall,
		s.Recommendation)
}
