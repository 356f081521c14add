// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"yourmind-go/internal/model"
	"yourmind-go/internal/repository"
	"yourmind-go/pkg/credential"
	"yourmind-go/pkg/log"
	"yourmind-go/pkg/token"

	"gorm.io/gorm"
)

// DefaultAvatarColor 是未选择头像颜色时的默认值。
const DefaultAvatarColor = "#3B82F6"

const (
	minPasswordLen = 6
	minNameLen     = 2
	maxLevel       = 100
)

// RegisterRequest 是注册信息，Phone 和 Location 可选。
type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	AvatarColor string `json:"avatar_color"`
	Phone       string `json:"phone"`
	Location    string `json:"location"`
}

// ProfileUpdate 是资料修改，nil 字段保持不变。
type ProfileUpdate struct {
	Name            *string `json:"name"`
	AvatarColor     *string `json:"avatar_color"`
	Phone           *string `json:"phone"`
	Location        *string `json:"location"`
	StressLevel     *int    `json:"stress_level"`
	AnxietyLevel    *int    `json:"anxiety_level"`
	DepressionLevel *int    `json:"depression_level"`
}

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*model.UserProfile, error)
	Login(ctx context.Context, email, password string) (user *model.UserProfile, accessToken, refreshToken string, err error)
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.UserProfile, error)
	// DeleteProfile 删除用户及其全部会话
	DeleteProfile(ctx context.Context, userID string) error
	Logout(ctx context.Context, tokenString string) error
	RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken, newRefreshToken string, err error)
	IsTokenRevoked(ctx context.Context, tokenString string) (bool, error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	blacklist  repository.TokenBlacklist
	jwtManager *token.JWTManager
	encoder    credential.Encoder
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, blacklist repository.TokenBlacklist, jwtManager *token.JWTManager, encoder credential.Encoder) UserService {
	return &userService{
		userRepo:   userRepo,
		blacklist:  blacklist,
		jwtManager: jwtManager,
		encoder:    encoder,
	}
}

// Register 处理用户注册的业务逻辑。
func (s *userService) Register(ctx context.Context, req RegisterRequest) (*model.UserProfile, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, invalidInput("모든 필드를 입력해주세요.")
	}
	if !strings.Contains(email, "@") {
		return nil, invalidInput("올바른 이메일 주소를 입력해주세요.")
	}
	if len(req.Password) < minPasswordLen {
		return nil, invalidInput("비밀번호는 최소 6자 이상이어야 합니다.")
	}
	if utf8.RuneCountInString(name) < minNameLen {
		return nil, invalidInput("이름은 최소 2자 이상이어야 합니다.")
	}

	// 1. 检查邮箱是否已被使用
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 2. 编码密码
	encoded, err := s.encoder.Encode(req.Password)
	if err != nil {
		return nil, err
	}

	avatar := strings.TrimSpace(req.AvatarColor)
	if avatar == "" {
		avatar = DefaultAvatarColor
	}
	user := &model.UserProfile{
		Name:        name,
		Email:       email,
		Password:    encoded,
		AvatarColor: avatar,
		Phone:       strings.TrimSpace(req.Phone),
		Location:    strings.TrimSpace(req.Location),
		Role:        "USER",
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		log.Errorf("[UserService] 创建用户失败, email: %s, error: %v", email, err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login 处理用户登录的业务逻辑。
func (s *userService) Login(ctx context.Context, email, password string) (*model.UserProfile, string, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", ErrInvalidCredentials
		}
		return nil, "", "", err
	}
	if !s.encoder.Verify(password, user.Password) {
		return nil, "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.issueTokens(user)
	if err != nil {
		return nil, "", "", err
	}
	return user, accessToken, refreshToken, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// UpdateProfile 修改资料，分数超出 0-100 时拒绝而不是截断。
func (s *userService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.UserProfile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if utf8.RuneCountInString(name) < minNameLen {
			return nil, invalidInput("이름은 최소 2자 이상이어야 합니다.")
		}
		user.Name = name
	}
	if upd.AvatarColor != nil && strings.TrimSpace(*upd.AvatarColor) != "" {
		user.AvatarColor = strings.TrimSpace(*upd.AvatarColor)
	}
	if upd.Phone != nil {
		user.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Location != nil {
		user.Location = strings.TrimSpace(*upd.Location)
	}
	levels := []struct {
		val *int
		dst *int
	}{
		{upd.StressLevel, &user.StressLevel},
		{upd.AnxietyLevel, &user.AnxietyLevel},
		{upd.DepressionLevel, &user.DepressionLevel},
	}
	for _, l := range levels {
		if l.val == nil {
			continue
		}
		if *l.val < 0 || *l.val > maxLevel {
			return nil, invalidInput("점수는 0에서 100 사이여야 합니다.")
		}
		*l.dst = *l.val
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *userService) DeleteProfile(ctx context.Context, userID string) error {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, userID)
}

// Logout 处理用户登出逻辑，将 token 加入 Redis 黑名单。
// token 的剩余有效期将作为黑名单的过期时间。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return err
	}
	return s.blacklist.Revoke(ctx, tokenString, time.Until(claims.ExpiresAt.Time))
}

// RefreshToken 验证 refresh token 并签发新的 access token 和 refresh token，旧的 refresh token 作废。
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (string, string, error) {
	// 1. 验证 refresh token 是否有效
	claims, err := s.jwtManager.VerifyToken(refreshTokenString)
	if err != nil || !claims.Refresh {
		return "", "", ErrInvalidCredentials
	}
	revoked, err := s.blacklist.IsRevoked(ctx, refreshTokenString)
	if err != nil {
		return "", "", err
	}
	if revoked {
		return "", "", ErrInvalidCredentials
	}

	// 2. 检查用户是否存在
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", "", ErrInvalidCredentials
	}

	// 3. 签发新的 token
	accessToken, refreshToken, err := s.issueTokens(user)
	if err != nil {
		return "", "", err
	}
	if err := s.blacklist.Revoke(ctx, refreshTokenString, time.Until(claims.ExpiresAt.Time)); err != nil {
		log.Errorf("[UserService] 作废旧 refresh token 失败, user: %s, error: %v", user.ID, err)
	}
	return accessToken, refreshToken, nil
}

func (s *userService) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	return s.blacklist.IsRevoked(ctx, tokenString)
}

func (s *userService) issueTokens(user *model.UserProfile) (string, string, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}
