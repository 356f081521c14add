// Package credential 负责用户密码的编码与校验。
// legacy 方案为可逆的 base64 编码，与已有账户数据兼容；bcrypt 为单向哈希。
package credential

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeLegacy = "legacy"
	SchemeBcrypt = "bcrypt"
)

// Encoder 定义了密码编码器。
type Encoder interface {
	Encode(password string) (string, error)
	Verify(password, encoded string) bool
}

// NewEncoder 按方案名创建编码器。
func NewEncoder(scheme string) (Encoder, error) {
	switch scheme {
	case "", SchemeLegacy:
		return legacyEncoder{}, nil
	case SchemeBcrypt:
		return bcryptEncoder{cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", scheme)
	}
}

type legacyEncoder struct{}

func (legacyEncoder) Encode(password string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(password)), nil
}

func (legacyEncoder) Verify(password, encoded string) bool {
	return base64.StdEncoding.EncodeToString([]byte(password)) == encoded
}

type bcryptEncoder struct {
	cost int
}

func (e bcryptEncoder) Encode(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), e.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

func (bcryptEncoder) Verify(password, encoded string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
}
