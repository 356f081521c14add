package service

import (
	"errors"

	"yourmind-go/internal/counsel"
)

// 业务错误，由 handler 映射为 HTTP 状态码。
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionBusy        = errors.New("session is processing another message")
	ErrChatUnavailable    = errors.New("chat completion unavailable")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrEmptyTitle         = errors.New("title is empty")
	ErrEmptySession       = errors.New("session has no messages")
	ErrUnknownMode        = errors.New("unknown ai mode")
	ErrUnknownTest        = counsel.ErrUnknownTest
	ErrExportUnavailable  = errors.New("report export is not configured")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// 面向用户的提示语。
const (
	NoticeChatUnavailable = "메시지를 전송할 수 없습니다. 잠시 후 다시 시도해주세요."
	NoticeSessionBusy     = "이전 메시지를 처리하고 있습니다."
)

// InputError 表示用户输入未通过校验，Message 直接展示给用户。
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func invalidInput(msg string) error {
	return &InputError{Message: msg}
}
