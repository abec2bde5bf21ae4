package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost はパスワードハッシュの既定コスト。
const DefaultBcryptCost = 10

// MaxPasswordBytes はbcryptが照合に使う入力の最大長。
const MaxPasswordBytes = 72

// ErrPasswordTooLong はbcryptが扱えない72バイト超のパスワードを表す。
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// PasswordHasher はパスワードの一方向ハッシュと照合を行う。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// BcryptHasher はbcryptによるPasswordHasherの実装。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はBcryptHasherを生成する。
// costが0以下、またはbcryptの許容範囲外の場合はDefaultBcryptCostを使用する。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash はソルト付きのbcryptハッシュを生成する。同じ入力でも毎回異なる値になる。
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify はplaintextがhashと一致するかを返す。
// hashが壊れている場合と、MaxPasswordBytesを超える入力も不一致として扱う。
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	if len(plaintext) > MaxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

var _ PasswordHasher = (*BcryptHasher)(nil)
