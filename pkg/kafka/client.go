// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"yourmind-go/internal/config"
	"yourmind-go/pkg/log"
	"yourmind-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts 是同一条告警处理的最大次数
const maxAttempts = 3

var (
	retryBackoff = 500 * time.Millisecond
	fetchBackoff = 2 * time.Second
)

// TaskProcessor defines the interface for any service that can process a risk alert.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.RiskAlertTask) error
}

// Producer 把风险告警写入 Kafka。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// Publish 发送一条风险告警，以会话 ID 作为分区键保证同一会话有序。
func (p *Producer) Publish(ctx context.Context, task tasks.RiskAlertTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.SessionID),
		Value: taskBytes,
	})
}

// Close 关闭底层 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// StartConsumer 启动一个 Kafka 消费者来处理风险告警，ctx 取消时退出。
// 每条消息在本地最多处理 maxAttempts 次，之后无论成败都提交 offset，
// 避免后续消息的提交越过未处理的告警。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, rdb *redis.Client, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Error("关闭 Kafka 消费者失败", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			if !sleepCtx(ctx, fetchBackoff) {
				log.Info("Kafka 消费者已停止")
				return
			}
			continue
		}

		var task tasks.RiskAlertTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			commit(ctx, r, m)
			continue
		}

		if err := processWithRetry(ctx, rdb, processor, task, retryBackoff); err != nil {
			if ctx.Err() != nil {
				// 停机时不提交，重启后重新投递
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Errorf("风险告警多次失败(>=%d)，提交 offset 终止重试: message=%s, error: %v", maxAttempts, task.MessageID, err)
		}
		commit(ctx, r, m)
	}
}

// processWithRetry 依次重试 processor，失败次数记录在 Redis 中（rdb 可为 nil）。
// 返回最后一次失败的错误，ctx 取消时提前返回。
func processWithRetry(ctx context.Context, rdb *redis.Client, processor TaskProcessor, task tasks.RiskAlertTask, backoff time.Duration) error {
	attemptsKey := fmt.Sprintf("kafka:attempts:%s", task.MessageID)
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = processor.Process(ctx, task); err == nil {
			if rdb != nil {
				_ = rdb.Del(ctx, attemptsKey).Err()
			}
			return nil
		}
		log.Errorf("处理风险告警失败: message=%s, attempt=%d, error: %v", task.MessageID, attempt, err)
		if rdb != nil {
			if incErr := rdb.Incr(ctx, attemptsKey).Err(); incErr == nil {
				_ = rdb.Expire(ctx, attemptsKey, 24*time.Hour).Err()
			}
		}
		if attempt < maxAttempts && !sleepCtx(ctx, backoff*time.Duration(attempt)) {
			return ctx.Err()
		}
	}
	return err
}

// sleepCtx 等待 d，ctx 先取消时返回 false。
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func commit(ctx context.Context, r *kafka.Reader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
