package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/y1ran/backend/internal/metrics"
	"github.com/y1ran/backend/internal/model"
	"golang.org/x/time/rate"
)

// ProviderExternal はIdPが提供元を返さなかった場合の提供元ラベル。
const ProviderExternal = "external"

// maxUserInfoBytes はIdPレスポンスの読み込み上限。
const maxUserInfoBytes = 1 << 20

// TokenVerifier はBearerトークンを検証し、リクエストの本人を解決する。
// 起動時に動作モードに応じて実装が1つだけ選ばれる。
//
// 不正・期限切れのトークンにはErrInvalidTokenを返す。
// それ以外のエラー（署名鍵未設定、IdP障害等）は500として扱われる。
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*model.Principal, error)
}

// LocalVerifier は自前のTokenServiceで検証するTokenVerifier。
type LocalVerifier struct {
	tokens *TokenService
}

// NewLocalVerifier はLocalVerifierを生成する。
func NewLocalVerifier(tokens *TokenService) *LocalVerifier {
	return &LocalVerifier{tokens: tokens}
}

// Verify はトークンのクレームを本人情報に変換する。提供元は常に"local"。
func (v *LocalVerifier) Verify(_ context.Context, token string) (*model.Principal, error) {
	claims, err := v.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	return &model.Principal{
		ID:       claims.ID,
		Email:    claims.Email,
		Provider: model.ProviderLocal,
	}, nil
}

// ProviderVerifierConfig はProviderVerifierの設定。
type ProviderVerifierConfig struct {
	BaseURL string       // IdPのベースURL（例: https://project.idp.example.com）
	APIKey  string       // apikeyヘッダーに付与する公開キー
	Client  *http.Client // nilの場合はhttp.DefaultClient
	// Limiter はIdPへの照会レートを制限する。nilの場合は制限しない。
	Limiter *rate.Limiter
	Metrics metrics.MetricsCollector
}

// ProviderVerifier は外部IdPのユーザー照会APIにトークンを委譲して検証するTokenVerifier。
type ProviderVerifier struct {
	userInfoURL string
	apiKey      string
	client      *http.Client
	limiter     *rate.Limiter
	metrics     metrics.MetricsCollector
}

// NewProviderVerifier はProviderVerifierを生成する。
func NewProviderVerifier(cfg ProviderVerifierConfig) *ProviderVerifier {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &ProviderVerifier{
		userInfoURL: strings.TrimRight(cfg.BaseURL, "/") + "/auth/v1/user",
		apiKey:      cfg.APIKey,
		client:      client,
		limiter:     cfg.Limiter,
		metrics:     metrics.OrNop(cfg.Metrics),
	}
}

// providerUser はIdPのユーザー照会レスポンス。
type providerUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	AppMetadata struct {
		Provider string `json:"provider"`
	} `json:"app_metadata"`
}

// Verify はIdPにトークンを照会し、返却された{id, email}を本人情報に変換する。
// IdPが4xxを返した場合はErrInvalidToken、5xxや通信自体の失敗はラップしたエラーを返す。
func (v *ProviderVerifier) Verify(ctx context.Context, token string) (*model.Principal, error) {
	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("identity provider rate wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}

	start := time.Now()
	resp, err := v.client.Do(req)
	v.metrics.RecordIdPLatency(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// 5xxはIdP側の障害として扱う
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
		}
		return nil, ErrInvalidToken
	}

	var user providerUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}

	provider := user.AppMetadata.Provider
	if provider == "" {
		provider = ProviderExternal
	}

	return &model.Principal{
		ID:       user.ID,
		Email:    user.Email,
		Provider: provider,
	}, nil
}

// IsInvalidToken はerrがトークン不正（401扱い）かどうかを返す。
func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

var (
	_ TokenVerifier = (*LocalVerifier)(nil)
	_ TokenVerifier = (*ProviderVerifier)(nil)
)
