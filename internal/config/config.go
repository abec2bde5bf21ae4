// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 認証モード
const (
	AuthModeLocal     = "local"
	AuthModeDelegated = "delegated"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL    string
	DBMaxOpenConns int

	// Auth
	AuthMode   string
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	// Identity provider（AuthMode=delegated）
	IdPURL            string
	IdPAPIKey         string
	IdPTimeout        time.Duration
	IdPRateLimit      float64
	IdPBurst          int
	IdPRestrictPublic bool

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigins []string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、未設定のものをすべて列挙したエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AuthMode = strings.ToLower(getEnvString("AUTH_MODE", AuthModeLocal))
	switch cfg.AuthMode {
	case AuthModeLocal:
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
		if cfg.JWTSecret == "" {
			missing = append(missing, "JWT_SECRET")
		}
	case AuthModeDelegated:
		// ローカル登録・ログインを併用する場合のみ使う
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
		cfg.IdPURL = os.Getenv("IDP_URL")
		if cfg.IdPURL == "" {
			missing = append(missing, "IDP_URL")
		}
		cfg.IdPAPIKey = os.Getenv("IDP_API_KEY")
		if cfg.IdPAPIKey == "" {
			missing = append(missing, "IDP_API_KEY")
		}
	default:
		return nil, fmt.Errorf("invalid AUTH_MODE %q (want %q or %q)", cfg.AuthMode, AuthModeLocal, AuthModeDelegated)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 7*24*time.Hour)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.IdPTimeout = getEnvDuration("IDP_TIMEOUT", 10*time.Second)
	cfg.IdPRateLimit = getEnvFloat("IDP_RATE_LIMIT", 20)
	cfg.IdPBurst = getEnvPositiveInt("IDP_BURST", 40)
	cfg.IdPRestrictPublic = getEnvBool("IDP_RESTRICT_PUBLIC", true)
	cfg.ServerPort = getEnvString("SERVER_PORT", getEnvString("PORT", "8080"))
	cfg.CORSAllowedOrigins = splitList(getEnvString("CORS_ALLOWED_ORIGINS", "*"))
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// String はシークレットを伏せた設定の要約を返す。起動ログ用。
func (c *Config) String() string {
	return fmt.Sprintf("auth_mode=%s port=%s token_ttl=%s bcrypt_cost=%d cors=%v idp_url=%s jwt_secret_set=%t",
		c.AuthMode, c.ServerPort, c.TokenTTL, c.BcryptCost, c.CORSAllowedOrigins, c.IdPURL, c.JWTSecret != "")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// getEnvPositiveInt は1未満の値を既定値に置き換える。
func getEnvPositiveInt(key string, defaultVal int) int {
	if i := getEnvInt(key, defaultVal); i >= 1 {
		return i
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// splitList はカンマ区切りの値を空要素を除いて分割する。
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
