package llm

import (
	"context"
	"strings"
)

type mockClient struct{}

// NewMockClient 返回不访问网络的客户端，按最后一条用户消息的关键词给出固定回复，用于本地开发。
func NewMockClient() Client {
	return mockClient{}
}

var mockReplies = []struct {
	keywords []string
	reply    string
}{
	{[]string{"안녕", "hello"}, "안녕하세요! 오늘 어떤 고민이 있으신가요? 편하게 말씀해주세요."},
	{[]string{"스트레스", "stress"}, "스트레스를 느끼고 계시는군요. 어떤 상황에서 스트레스를 받고 계신지 자세히 말씀해주세요. 함께 해결책을 찾아보겠습니다."},
	{[]string{"우울", "depression"}, "우울한 감정을 느끼고 계시는군요. 이런 감정이 언제부터 시작되었는지, 어떤 일이 있었는지 이야기해주세요. 전문가의 도움이 필요할 수도 있습니다."},
	{[]string{"불안", "anxiety"}, "불안한 마음이 드시는군요. 어떤 것에 대해 불안을 느끼고 계신지, 언제부터 이런 감정이 있었는지 말씀해주세요."},
}

const mockFallback = "말씀해주신 내용을 잘 들었습니다. 더 자세한 상황이나 감정에 대해 이야기해주시면, 함께 생각해보고 도움을 드릴 수 있을 것 같습니다."

func (mockClient) Chat(ctx context.Context, messages []Message, _ *GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			last = messages[i].Content
			break
		}
	}
	for _, r := range mockReplies {
		for _, k := range r.keywords {
			if strings.Contains(last, k) {
				return r.reply, nil
			}
		}
	}
	return mockFallback, nil
}
