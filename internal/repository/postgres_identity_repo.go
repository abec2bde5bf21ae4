package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/y1ran/backend/internal/model"
)

// PostgresIdentityRepo はPostgreSQLを使用したidentityリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	start := time.Now()
	identity := &model.Identity{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, provider_user_id, created_at, updated_at
		 FROM user_identities
		 WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	).Scan(&identity.ID, &identity.UserID, &identity.Provider, &identity.ProviderUserID,
		&identity.CreatedAt, &identity.UpdatedAt)

	if err == sql.ErrNoRows {
		logQuery(ctx, "user_identities.find", start, 0)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	logQuery(ctx, "user_identities.find", start, 1)
	return identity, nil
}

// Upsert は(provider, provider_user_id)をキーにidentityをUPSERTする。
// 同一入力の再実行は状態を変えない。別ユーザーへの再紐付けは後勝ちで上書きする。
func (r *PostgresIdentityRepo) Upsert(ctx context.Context, userID, provider, providerUserID string) error {
	start := time.Now()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO user_identities (id, user_id, provider, provider_user_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (provider, provider_user_id)
		 DO UPDATE SET user_id = EXCLUDED.user_id, updated_at = now()
		 WHERE user_identities.user_id IS DISTINCT FROM EXCLUDED.user_id`,
		uuid.New().String(), userID, provider, providerUserID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert identity: %w", err)
	}

	rows, _ := result.RowsAffected()
	logQuery(ctx, "user_identities.upsert", start, rows)
	return nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
