// Package identity は外部IdPのアカウントとローカルユーザーIDの紐付けを管理する。
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/y1ran/backend/internal/metrics"
	"github.com/y1ran/backend/internal/model"
	"github.com/y1ran/backend/internal/repository"
)

const missingParamsMessage = "missing provider/provider_user_id"

// LinkStatus は紐付け確認の結果。未リンク時のUserIDはnil。
type LinkStatus struct {
	Linked bool
	UserID *string
}

// Service は外部IDリンクの確認と作成を提供する。
type Service struct {
	repo    repository.IdentityRepository
	metrics metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(repo repository.IdentityRepository, collector metrics.MetricsCollector) *Service {
	return &Service{repo: repo, metrics: metrics.OrNop(collector)}
}

// CheckLink は(provider, providerUserID)がリンク済みかを返す。認証不要。
func (s *Service) CheckLink(ctx context.Context, provider, providerUserID string) (*LinkStatus, error) {
	provider, providerUserID, err := normalizePair(provider, providerUserID)
	if err != nil {
		return nil, err
	}

	identity, err := s.repo.FindByProviderAndProviderUserID(ctx, provider, providerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity link: %w", err)
	}
	if identity == nil {
		return &LinkStatus{Linked: false}, nil
	}

	userID := identity.UserID
	return &LinkStatus{Linked: true, UserID: &userID}, nil
}

// CreateLink は呼び出し元のuserIDに(provider, providerUserID)を紐付ける。
// 同じ組で再実行しても状態は変わらない。別ユーザーが紐付け済みの場合は上書きする。
func (s *Service) CreateLink(ctx context.Context, userID, provider, providerUserID string) error {
	if userID == "" {
		return model.NewMissingTokenError()
	}
	provider, providerUserID, err := normalizePair(provider, providerUserID)
	if err != nil {
		return err
	}

	if err := s.repo.Upsert(ctx, userID, provider, providerUserID); err != nil {
		return fmt.Errorf("failed to upsert identity link: %w", err)
	}

	s.metrics.RecordIdentityLink()
	slog.InfoContext(ctx, "identity linked",
		slog.String("user_id", userID),
		slog.String("provider", provider),
	)
	return nil
}

func normalizePair(provider, providerUserID string) (string, string, error) {
	provider = strings.TrimSpace(provider)
	providerUserID = strings.TrimSpace(providerUserID)
	if provider == "" || providerUserID == "" {
		return "", "", model.NewValidationError(missingParamsMessage)
	}
	return provider, providerUserID, nil
}
