package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/y1ran/backend/internal/model"
)

const profileColumns = `user_id, email, provider, display_name, avatar_url, created_at, updated_at`

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	start := time.Now()
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`,
		userID,
	))
	if err == sql.ErrNoRows {
		logQuery(ctx, "profiles.find", start, 0)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	logQuery(ctx, "profiles.find", start, 1)
	return p, nil
}

// CreateIfAbsent はプロフィールが存在しない場合のみ作成し、現在の行を返す。
// 既存行がある場合は変更せずにそのまま返す。
func (r *PostgresProfileRepo) CreateIfAbsent(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, email, provider, display_name, avatar_url)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO NOTHING`,
		profile.UserID, profile.Email, profile.Provider, profile.DisplayName, profile.AvatarURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}
	logQuery(ctx, "profiles.create_if_absent", start, 1)

	p, err := r.FindByUserID(ctx, profile.UserID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("profile vanished after insert: %s", profile.UserID)
	}
	return p, nil
}

// Update はdisplay_nameとavatar_urlを部分更新する。nilのフィールドは変更しない。
// 見つからない場合はnilを返す。
func (r *PostgresProfileRepo) Update(ctx context.Context, userID string, displayName, avatarURL *string) (*model.Profile, error) {
	start := time.Now()
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`UPDATE profiles
		 SET display_name = COALESCE($2, display_name),
		     avatar_url = COALESCE($3, avatar_url),
		     updated_at = now()
		 WHERE user_id = $1
		 RETURNING `+profileColumns,
		userID, displayName, avatarURL,
	))
	if err == sql.ErrNoRows {
		logQuery(ctx, "profiles.update", start, 0)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	logQuery(ctx, "profiles.update", start, 1)
	return p, nil
}

// scanProfile は1行をProfileに読み込む。
func scanProfile(row *sql.Row) (*model.Profile, error) {
	p := &model.Profile{}
	if err := row.Scan(&p.UserID, &p.Email, &p.Provider, &p.DisplayName, &p.AvatarURL,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
