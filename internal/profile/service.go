// Package profile はリクエストの本人に紐づくプロフィールの自動作成と更新を提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/y1ran/backend/internal/metrics"
	"github.com/y1ran/backend/internal/model"
	"github.com/y1ran/backend/internal/repository"
	"github.com/y1ran/backend/internal/security"
)

// UpdateInput はPUTで変更可能なフィールド。nilのフィールドは変更しない。
type UpdateInput struct {
	DisplayName *string
	AvatarURL   *string
}

// Service はプロフィールの取得・更新を提供する。
type Service struct {
	repo      repository.ProfileRepository
	sanitizer *security.ProfileSanitizer
	metrics   metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(repo repository.ProfileRepository, sanitizer *security.ProfileSanitizer, collector metrics.MetricsCollector) *Service {
	if sanitizer == nil {
		sanitizer = security.NewProfileSanitizer()
	}
	return &Service{repo: repo, sanitizer: sanitizer, metrics: metrics.OrNop(collector)}
}

// Get は本人のプロフィールを返す。存在しない場合は空の表示名・アバターで作成する。
// 同時に初回アクセスがあっても作成される行は1件のみ。
func (s *Service) Get(ctx context.Context, principal *model.Principal) (*model.Profile, error) {
	if principal == nil || principal.ID == "" {
		return nil, model.NewMissingTokenError()
	}

	existing, err := s.repo.FindByUserID(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	created, err := s.repo.CreateIfAbsent(ctx, &model.Profile{
		UserID:   principal.ID,
		Email:    principal.Email,
		Provider: principal.Provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to provision profile: %w", err)
	}

	s.metrics.RecordProfileProvisioned()
	slog.InfoContext(ctx, "profile provisioned",
		slog.String("user_id", principal.ID),
		slog.String("provider", principal.Provider),
	)
	return created, nil
}

// Update は本人のプロフィールのdisplay_nameとavatar_urlだけを更新する。
// display_nameはマークアップ除去のうえ50文字に切り詰め、avatar_urlは検証して不正なら400を返す。
func (s *Service) Update(ctx context.Context, principal *model.Principal, in UpdateInput) (*model.Profile, error) {
	if principal == nil || principal.ID == "" {
		return nil, model.NewMissingTokenError()
	}

	var displayName, avatarURL *string
	if in.DisplayName != nil {
		v := s.sanitizer.DisplayName(*in.DisplayName)
		displayName = &v
	}
	if in.AvatarURL != nil {
		v, err := s.sanitizer.AvatarURL(*in.AvatarURL)
		if err != nil {
			return nil, model.NewValidationError(err.Error())
		}
		avatarURL = &v
	}

	current, err := s.Get(ctx, principal)
	if err != nil {
		return nil, err
	}
	if displayName == nil && avatarURL == nil {
		return current, nil
	}

	updated, err := s.repo.Update(ctx, principal.ID, displayName, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("profile for %s disappeared during update", principal.ID)
	}
	return updated, nil
}
