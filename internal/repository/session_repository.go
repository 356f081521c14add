package repository

import (
	"context"

	"yourmind-go/internal/model"

	"gorm.io/gorm"
)

// SessionRepository 定义了咨询会话与消息的持久化操作。
type SessionRepository interface {
	Create(ctx context.Context, session *model.ChatSession) error
	FindByID(ctx context.Context, sessionID string) (*model.ChatSession, error)
	ListByUser(ctx context.Context, userID string) ([]model.ChatSession, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	UpdateTitle(ctx context.Context, sessionID, title string) error
	UpdateCompletionToken(ctx context.Context, sessionID, token string) error
	// Delete 在同一事务中删除会话及其全部消息
	Delete(ctx context.Context, sessionID string) error

	AppendMessage(ctx context.Context, msg *model.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	FirstMessages(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建一个新的 SessionRepository 实例。
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.ChatSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) FindByID(ctx context.Context, sessionID string) (*model.ChatSession, error) {
	var s model.ChatSession
	if err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByUser 按最近更新时间倒序返回用户的会话。
func (r *sessionRepository) ListByUser(ctx context.Context, userID string) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ChatSession{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *sessionRepository) UpdateTitle(ctx context.Context, sessionID, title string) error {
	res := r.db.WithContext(ctx).Model(&model.ChatSession{}).Where("id = ?", sessionID).Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sessionRepository) UpdateCompletionToken(ctx context.Context, sessionID, token string) error {
	return r.db.WithContext(ctx).Model(&model.ChatSession{}).Where("id = ?", sessionID).Update("completion_token", token).Error
}

func (r *sessionRepository) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", sessionID).Delete(&model.ChatSession{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// AppendMessage 写入一条消息并刷新会话的更新时间。
func (r *sessionRepository) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.ChatSession{}).Where("id = ?", msg.SessionID).Update("updated_at", msg.Timestamp).Error
	})
}

func (r *sessionRepository) ListMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	return r.FirstMessages(ctx, sessionID, -1)
}

// FirstMessages 按时间顺序返回前 limit 条消息，limit 小于 0 表示全部。
func (r *sessionRepository) FirstMessages(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}
