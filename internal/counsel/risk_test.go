package counsel

import "testing"

func TestClassifyRisk(t *testing.T) {
	cases := []struct {
		name      string
		user, ai  string
		want      RiskLevel
		immediate bool
	}{
		{"suicidal ideation", "요즘 너무 힘들어서 죽고 싶어요", "많이 힘드셨겠어요.", RiskHigh, true},
		{"high beats moderate", "우울하고 자해하고 싶어요", "", RiskHigh, true},
		{"moderate hopelessness", "희망이 없다는 생각이 들어요", "", RiskModerate, false},
		{"keyword in ai reply", "요즘 그냥 그래요", "외로움을 느끼고 계신 것 같아요.", RiskModerate, false},
		{"ordinary talk", "오늘 회사에서 발표를 했어요", "수고 많으셨어요.", RiskLow, false},
		{"empty", "", "", RiskLow, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyRisk(tc.user, tc.ai)
			if got.Level != tc.want {
				t.Errorf("level = %s, want %s", got.Level, tc.want)
			}
			if got.RequiresImmediateAttention != tc.immediate {
				t.Errorf("requiresImmediateAttention = %v, want %v", got.RequiresImmediateAttention, tc.immediate)
			}
			if got.Message == "" {
				t.Error("advisory message should not be empty")
			}
		})
	}
}

func TestClassifyRiskIgnoresCase(t *testing.T) {
	got := ClassifyRisk("I feel 우울 TODAY", "")
	if got.Level != RiskModerate {
		t.Fatalf("level = %s, want moderate", got.Level)
	}
}
