// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"

	"yourmind-go/internal/model"

	"gorm.io/gorm"
)

// UserRepository 接口定义了用户数据的持久化操作。
type UserRepository interface {
	Create(ctx context.Context, user *model.UserProfile) error
	FindByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	FindByID(ctx context.Context, userID string) (*model.UserProfile, error)
	Update(ctx context.Context, user *model.UserProfile) error
	Delete(ctx context.Context, userID string) error
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 在数据库中创建一个新的用户记录。
func (r *userRepository) Create(ctx context.Context, user *model.UserProfile) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail 根据邮箱查找用户，未找到时返回 gorm.ErrRecordNotFound。
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	var user model.UserProfile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID 根据用户 ID 从数据库中查找一个用户。
func (r *userRepository) FindByID(ctx context.Context, userID string) (*model.UserProfile, error) {
	var user model.UserProfile
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Update 更新数据库中一个已存在的用户记录。
func (r *userRepository) Update(ctx context.Context, user *model.UserProfile) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// Delete 删除用户以及其全部会话和消息。
func (r *userRepository) Delete(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessionIDs := tx.Model(&model.ChatSession{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("session_id IN (?)", sessionIDs).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.ChatSession{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", userID).Delete(&model.UserProfile{}).Error
	})
}
