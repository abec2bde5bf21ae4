package repository

import (
	"context"
	"log/slog"
	"time"
)

// logQuery は実行したクエリの所要時間と件数をdebugレベルで記録する。
// パラメータはパスワードハッシュ等を含むため記録しない。
func logQuery(ctx context.Context, op string, start time.Time, rows int64) {
	slog.DebugContext(ctx, "executed query",
		slog.String("op", op),
		slog.Float64("duration_ms", float64(time.Since(start).Nanoseconds())/float64(time.Millisecond)),
		slog.Int64("rows", rows),
	)
}
