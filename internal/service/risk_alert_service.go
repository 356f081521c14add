package service

import (
	"context"
	"fmt"

	"yourmind-go/internal/model"
	"yourmind-go/internal/repository"
	"yourmind-go/pkg/tasks"
)

// RiskAlertPublisher 投递高风险告警。kafka.Producer 实现了该接口。
type RiskAlertPublisher interface {
	Publish(ctx context.Context, task tasks.RiskAlertTask) error
}

// RiskAlertService 落库风险告警，同时作为 Kafka 消费者的 TaskProcessor。
type RiskAlertService interface {
	Process(ctx context.Context, task tasks.RiskAlertTask) error
}

type riskAlertService struct {
	repo repository.RiskAlertRepository
}

func NewRiskAlertService(repo repository.RiskAlertRepository) RiskAlertService {
	return &riskAlertService{repo: repo}
}

// Process 按 MessageID 幂等写入告警，Kafka 重复投递是安全的。
func (s *riskAlertService) Process(ctx context.Context, task tasks.RiskAlertTask) error {
	alert := &model.RiskAlert{
		UserID:    task.UserID,
		SessionID: task.SessionID,
		MessageID: task.MessageID,
		Level:     task.Level,
		Advisory:  task.Advisory,
		Excerpt:   task.Excerpt,
		CreatedAt: task.CreatedAt,
	}
	if err := s.repo.Create(ctx, alert); err != nil {
		return fmt.Errorf("failed to save risk alert: %w", err)
	}
	return nil
}

// directPublisher 在未启用 Kafka 时同步落库。
type directPublisher struct {
	processor RiskAlertService
}

// NewDirectPublisher 返回一个绕过消息队列、直接调用 processor 的发布者。
func NewDirectPublisher(processor RiskAlertService) RiskAlertPublisher {
	return &directPublisher{processor: processor}
}

func (p *directPublisher) Publish(ctx context.Context, task tasks.RiskAlertTask) error {
	return p.processor.Process(ctx, task)
}
