package model

import "time"

// User はローカル登録されたアカウントを表す。
// PasswordHashはレスポンスに含めてはならない。
type User struct {
	ID           string
	Email        string
	PasswordHash string `json:"-"`
	CreatedAt    time.Time
}

// Sanitized はパスワードハッシュを取り除いたコピーを返す。
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Identity は外部IdPのユーザーとローカルユーザーIDとの紐付け情報を表す。
// (Provider, ProviderUserID) の組はテーブル全体で一意。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Principal はリクエストごとに解決された呼び出し元の識別情報を表す。
// ローカルJWTまたは外部IdPのいずれか一方から解決される。
type Principal struct {
	ID       string
	Email    string
	Provider string
}

// ProviderLocal はローカル発行トークンで解決されたPrincipalのプロバイダー名。
const ProviderLocal = "local"

// Profile はアプリケーション向けのユーザープロフィールを表す。
// UserIDをキーとし、Emailは非正規化された属性として保持する。
type Profile struct {
	UserID      string
	Email       string
	Provider    string
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// プロフィールの可変フィールドの上限文字数。
const (
	MaxDisplayNameLength = 50
	MaxAvatarURLLength   = 500
)
