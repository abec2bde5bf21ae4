// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/y1ran/backend/internal/model"
)

// UserRepository はローカルユーザーの永続化インターフェース。
// ビジネスロジックは持たず、パラメータバインドされたクエリのみを実行する。
type UserRepository interface {
	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザーを作成し、id、email、created_atを返す。
	// メールアドレスが既に登録済みの場合はErrDuplicateを返す。
	Create(ctx context.Context, email, passwordHash string) (*model.User, error)
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)

	// Upsert は(provider, provider_user_id)をキーにidentityを冪等にUPSERTする。
	// 既存の紐付けが別ユーザーを指していた場合はuser_idを上書きする。
	Upsert(ctx context.Context, userID, provider, providerUserID string) error
}

// ProfileRepository はプロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)

	// CreateIfAbsent はプロフィールが存在しない場合のみ作成し、現在の行を返す。
	// 同時に呼ばれても作成される行は1件のみ。
	CreateIfAbsent(ctx context.Context, profile *model.Profile) (*model.Profile, error)

	// Update はdisplay_nameとavatar_urlを部分更新する。nilのフィールドは変更しない。
	// 見つからない場合はnilを返す。
	Update(ctx context.Context, userID string, displayName, avatarURL *string) (*model.Profile, error)
}

// HealthChecker はデータベースの疎通確認インターフェース。
type HealthChecker interface {
	// Now はデータベースの現在時刻を返す。
	Now(ctx context.Context) (string, error)
}
