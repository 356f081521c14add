package service

import (
	"context"
	"fmt"
	"time"

	"yourmind-go/internal/counsel"
	"yourmind-go/internal/model"
	"yourmind-go/internal/repository"
	"yourmind-go/pkg/log"
)

// SummaryResult 是结构化总结以及展示用的文本。
type SummaryResult struct {
	SessionID string          `json:"sessionId"`
	Summary   counsel.Summary `json:"summary"`
	Formatted string          `json:"formatted"`
}

// ExportResult 是导出报告后的下载信息。
type ExportResult struct {
	SummaryResult
	ObjectName string `json:"objectName"`
	URL        string `json:"url"`
}

// ReportUploader 上传报告并返回下载地址。storage.ReportStore 实现了该接口。
type ReportUploader interface {
	Upload(ctx context.Context, objectName string, content []byte, contentType string) (string, error)
}

// SummaryService 对整段会话生成总结，并可导出为 HTML 报告。
type SummaryService interface {
	Summarize(ctx context.Context, userID, sessionID string) (*SummaryResult, error)
	Export(ctx context.Context, userID, sessionID string) (*ExportResult, error)
}

type summaryService struct {
	sessions   repository.SessionRepository
	completion CompletionService
	uploader   ReportUploader
}

// NewSummaryService 创建 SummaryService，uploader 为 nil 时导出不可用。
func NewSummaryService(sessions repository.SessionRepository, completion CompletionService, uploader ReportUploader) SummaryService {
	return &summaryService{sessions: sessions, completion: completion, uploader: uploader}
}

// Summarize 在独立上下文中请求模型总结，回复格式不符时各字段回落到默认值。
func (s *summaryService) Summarize(ctx context.Context, userID, sessionID string) (*SummaryResult, error) {
	if _, err := ownedSession(ctx, s.sessions, userID, sessionID); err != nil {
		return nil, err
	}
	msgs, err := s.sessions.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil, ErrEmptySession
	}

	reply, err := s.completion.Complete(ctx, counsel.BuildSummaryPrompt(model.Turns(msgs)))
	if err != nil {
		log.Errorf("[SummaryService] 生成总结失败, session: %s, error: %v", sessionID, err)
		return nil, fmt.Errorf("%w: %v", ErrChatUnavailable, err)
	}
	summary := counsel.ParseSummary(reply)
	return &SummaryResult{
		SessionID: sessionID,
		Summary:   summary,
		Formatted: counsel.FormatSummary(summary),
	}, nil
}

func (s *summaryService) Export(ctx context.Context, userID, sessionID string) (*ExportResult, error) {
	if s.uploader == nil {
		return nil, ErrExportUnavailable
	}
	res, err := s.Summarize(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	html, err := counsel.RenderReport(res.Summary, now)
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	objectName := fmt.Sprintf("reports/%s/%s/%d.html", userID, sessionID, now.UnixMilli())
	url, err := s.uploader.Upload(ctx, objectName, html, "text/html; charset=utf-8")
	if err != nil {
		return nil, err
	}
	log.Infow("summary report exported", "session", sessionID, "object", objectName)
	return &ExportResult{SummaryResult: *res, ObjectName: objectName, URL: url}, nil
}
