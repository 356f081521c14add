// Package token 提供了用于生成和验证 JSON Web Tokens (JWT) 的功能。
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager 负责管理 JWT 的生成和验证。
type JWTManager struct {
	secretKey       []byte        // secretKey 用于签名和验证 token 的密钥
	accessTokenDur  time.Duration // accessTokenDur 定义了 access token 的有效期
	refreshTokenDur time.Duration // refreshTokenDur 定义了 refresh token 的有效期
}

// CustomClaims 定义了我们想要在 JWT 中存储的自定义数据。
type CustomClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	// Refresh 区分 refresh token，避免其被当作 access token 使用
	Refresh bool `json:"refresh,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
func NewJWTManager(secret string, accessTokenExpireHours, refreshTokenExpireDays int) *JWTManager {
	return &JWTManager{
		secretKey:       []byte(secret),
		accessTokenDur:  time.Hour * time.Duration(accessTokenExpireHours),
		refreshTokenDur: time.Duration(refreshTokenExpireDays) * 24 * time.Hour,
	}
}

// GenerateToken 根据给定的用户信息生成一个新的 access token。
func (m *JWTManager) GenerateToken(userID, email, role string) (string, error) {
	return m.sign(userID, email, role, false, m.accessTokenDur)
}

// GenerateRefreshToken 生成有效期更长的 refresh token。
func (m *JWTManager) GenerateRefreshToken(userID, email, role string) (string, error) {
	return m.sign(userID, email, role, true, m.refreshTokenDur)
}

func (m *JWTManager) sign(userID, email, role string, refresh bool, dur time.Duration) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		UserID:  userID,
		Email:   email,
		Role:    role,
		Refresh: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        GenerateRandomString(8),
			ExpiresAt: jwt.NewNumericDate(now.Add(dur)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	// 使用 HS256 签名方法创建新的 token 对象
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken 验证给定的 token 字符串。
// 如果 token 无效（例如，签名不匹配或已过期），则返回错误。
func (m *JWTManager) VerifyToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GenerateRandomString generates a random hex string of a given length.
func GenerateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a less random string on error
		return fmt.Sprintf("fallback%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
