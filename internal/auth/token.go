package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/y1ran/backend/internal/model"
)

// DefaultTokenTTL はセッショントークンの既定有効期間（7日）。
const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	// ErrInvalidToken は署名不正・形式不正・期限切れのトークンを表す。
	ErrInvalidToken = errors.New("invalid token")
	// ErrSigningKeyMissing は署名鍵が未設定であることを表す。ErrInvalidTokenとは区別する。
	ErrSigningKeyMissing = errors.New("token signing key is not configured")
)

// Claims はセッショントークンに埋め込む本人情報。
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService はHS256で署名したセッショントークンの発行と検証を行う。
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption はTokenServiceの設定を変更する。
type TokenOption func(*TokenService)

// WithClock は発行・検証に使う時計を差し替える。
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService はTokenServiceを生成する。
// ttlが0以下の場合はDefaultTokenTTLを使用する。
// secretが空でも生成はできるが、Issue/VerifyはErrSigningKeyMissingを返す。
func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured は署名鍵が設定されているかを返す。
func (s *TokenService) Configured() bool {
	return len(s.secret) > 0
}

// Issue はユーザーのidとemailをクレームに持つトークンを発行する。
func (s *TokenService) Issue(user *model.User) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrSigningKeyMissing
	}
	if user == nil || user.ID == "" {
		return "", fmt.Errorf("cannot issue token without user id")
	}

	now := s.now()
	claims := Claims{
		ID:    user.ID,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証してクレームを返す。
// 検証に失敗した場合は理由を問わずErrInvalidTokenを返す。
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrSigningKeyMissing
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
