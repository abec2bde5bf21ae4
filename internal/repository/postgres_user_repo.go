package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/y1ran/backend/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
// メールアドレスは保存時の大文字小文字をそのまま比較する。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	start := time.Now()
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)

	if err == sql.ErrNoRows {
		logQuery(ctx, "users.find_by_email", start, 0)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	logQuery(ctx, "users.find_by_email", start, 1)
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
// パスワードハッシュは取得しない。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		// uuid列に不正な文字列を渡すとエラーになるため、存在しない扱いにする
		return nil, nil
	}

	start := time.Now()
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.CreatedAt)

	if err == sql.ErrNoRows {
		logQuery(ctx, "users.find_by_id", start, 0)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	logQuery(ctx, "users.find_by_id", start, 1)
	return user, nil
}

// Create はユーザーを作成し、id、email、created_atを返す。
// email列の一意制約違反はErrDuplicateに変換する。
func (r *PostgresUserRepo) Create(ctx context.Context, email, passwordHash string) (*model.User, error) {
	start := time.Now()
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, email, created_at`,
		uuid.New().String(), email, passwordHash,
	).Scan(&user.ID, &user.Email, &user.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to insert user: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	logQuery(ctx, "users.create", start, 1)
	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
