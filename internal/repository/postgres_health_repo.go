package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresHealthRepo はデータベース疎通確認を行う。
type PostgresHealthRepo struct {
	db *sql.DB
}

// NewPostgresHealthRepo はPostgresHealthRepoを生成する。
func NewPostgresHealthRepo(db *sql.DB) *PostgresHealthRepo {
	return &PostgresHealthRepo{db: db}
}

// Now はSELECT NOW()を実行し、データベースの現在時刻をRFC3339形式で返す。
func (r *PostgresHealthRepo) Now(ctx context.Context) (string, error) {
	var now time.Time
	if err := r.db.QueryRowContext(ctx, `SELECT NOW()`).Scan(&now); err != nil {
		return "", fmt.Errorf("failed to query database time: %w", err)
	}
	return now.UTC().Format(time.RFC3339Nano), nil
}

// compile-time interface check
var _ HealthChecker = (*PostgresHealthRepo)(nil)
