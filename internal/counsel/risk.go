package counsel

import "strings"

// RiskLevel 是单轮对话的风险等级。
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskUnknown  RiskLevel = "unknown"
)

// RiskAssessment 是风险分级的结果，会随 AI 回复一起持久化。
type RiskAssessment struct {
	Level                      RiskLevel `json:"level"`
	Message                    string    `json:"message"`
	RequiresImmediateAttention bool      `json:"requiresImmediateAttention"`
}

var highRiskKeywords = []string{
	"자살", "죽고 싶다", "죽고 싶", "살고 싶지 않다", "끝내고 싶다",
	"자해", "자신을 해치고 싶다", "칼", "약물 과다 복용",
	"타인을 해치고 싶다", "폭력", "살인", "죽이고 싶다",
}

var moderateRiskKeywords = []string{
	"우울", "절망", "희망이 없다", "의미가 없다", "고립", "외로움", "아무도 이해하지 못한다",
}

const (
	adviceHigh     = "위험 신호가 감지되었습니다. 즉시 전문가 상담을 권유합니다."
	adviceModerate = "정신 건강에 대한 관심이 필요할 수 있습니다."
	adviceLow      = "일반적인 상담 상황입니다."
	adviceUnknown  = "위험도 분석 중 오류가 발생했습니다."
)

// ClassifyRisk 对用户消息和 AI 回复做关键词分级，高风险优先。
// 该函数不会向调用方抛出 panic，内部异常时返回 unknown。
func ClassifyRisk(userText, aiText string) (ra RiskAssessment) {
	defer func() {
		if r := recover(); r != nil {
			ra = RiskAssessment{Level: RiskUnknown, Message: adviceUnknown}
		}
	}()

	text := strings.ToLower(userText + " " + aiText)
	if containsAny(text, highRiskKeywords) {
		return RiskAssessment{Level: RiskHigh, Message: adviceHigh, RequiresImmediateAttention: true}
	}
	if containsAny(text, moderateRiskKeywords) {
		return RiskAssessment{Level: RiskModerate, Message: adviceModerate}
	}
	return RiskAssessment{Level: RiskLow, Message: adviceLow}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
