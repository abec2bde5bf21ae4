// Package auth はパスワードハッシュ、セッショントークン、ローカル認証フロー、
// およびBearerトークンの検証戦略を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/y1ran/backend/internal/metrics"
	"github.com/y1ran/backend/internal/model"
	"github.com/y1ran/backend/internal/repository"
)

// AuthResult は登録・ログイン成功時の結果。Userはハッシュを含まない。
type AuthResult struct {
	User  *model.User
	Token string
}

// Service はローカルアカウントの登録・ログイン・自己参照を提供する。
type Service struct {
	users   repository.UserRepository
	hasher  PasswordHasher
	tokens  *TokenService
	metrics metrics.MetricsCollector

	// 未登録メールアドレスの照合に使うハッシュ。初回利用時に一度だけ生成する。
	dummyOnce sync.Once
	dummyHash string
}

// NewService はServiceを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewService(
	users repository.UserRepository,
	hasher PasswordHasher,
	tokens *TokenService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		metrics: metrics.OrNop(collector),
	}
}

// Register は新しいローカルアカウントを作成し、トークンを発行する。
// 事前の存在確認は最適化にすぎず、重複の最終判定はストアの一意制約で行う。
func (s *Service) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.metrics.RecordRegistration(metrics.ResultInvalid)
		return nil, model.NewValidationError("email and password are required")
	}
	if err := s.requireSigningKey(); err != nil {
		s.metrics.RecordRegistration(metrics.ResultError)
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.metrics.RecordRegistration(metrics.ResultError)
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		s.metrics.RecordRegistration(metrics.ResultConflict)
		return nil, model.NewEmailTakenError()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			s.metrics.RecordRegistration(metrics.ResultInvalid)
			return nil, model.NewValidationError("password must be at most 72 bytes")
		}
		s.metrics.RecordRegistration(metrics.ResultError)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.RecordRegistration(metrics.ResultConflict)
			return nil, model.NewEmailTakenError()
		}
		s.metrics.RecordRegistration(metrics.ResultError)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.issue(user)
	if err != nil {
		s.metrics.RecordRegistration(metrics.ResultError)
		return nil, err
	}

	s.metrics.RecordRegistration(metrics.ResultSuccess)
	slog.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))

	return &AuthResult{User: user.Sanitized(), Token: token}, nil
}

// Login はメールアドレスとパスワードを照合し、トークンを発行する。
// 未登録とパスワード不一致は区別できない同一のエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.metrics.RecordLogin(metrics.ResultInvalid)
		return nil, model.NewValidationError("email and password are required")
	}
	if err := s.requireSigningKey(); err != nil {
		s.metrics.RecordLogin(metrics.ResultError)
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.metrics.RecordLogin(metrics.ResultError)
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		s.hasher.Verify(password, s.timingHash())
		s.metrics.RecordLogin(metrics.ResultInvalid)
		return nil, model.NewInvalidCredentialsError()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.RecordLogin(metrics.ResultInvalid)
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.issue(user)
	if err != nil {
		s.metrics.RecordLogin(metrics.ResultError)
		return nil, err
	}

	s.metrics.RecordLogin(metrics.ResultSuccess)
	slog.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return &AuthResult{User: user.Sanitized(), Token: token}, nil
}

// Me はトークンの主体IDからユーザーを取得する。
// トークン発行後に行が消えていた場合はUSER_NOT_FOUNDを返す。
func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user.Sanitized(), nil
}

// timingHash は登録済みユーザーと応答時間をそろえるための照合用ハッシュを返す。
func (s *Service) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("timing-equalization-placeholder")
		if err != nil {
			slog.Warn("failed to prepare timing hash", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// requireSigningKey は署名鍵未設定のときストアに触れる前にTOKEN_CONFIG_ERRORを返す。
func (s *Service) requireSigningKey() error {
	if s.tokens == nil || !s.tokens.Configured() {
		slog.Error("token signing key is not configured")
		return model.NewTokenConfigError()
	}
	return nil
}

// issue はトークンを発行し、署名鍵未設定をTOKEN_CONFIG_ERRORに変換する。
func (s *Service) issue(user *model.User) (string, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		if errors.Is(err, ErrSigningKeyMissing) {
			slog.Error("token signing key is not configured")
			return "", model.NewTokenConfigError()
		}
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}
