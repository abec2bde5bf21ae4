package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/y1ran/backend/internal/metrics"
)

// NewRecoveryMiddleware はハンドラー内のpanicを回収し、統一フォーマットの500を返すミドルウェアを返す。
// レスポンス書き込み開始後のpanicではボディを追記せず、ログとメトリクスの記録のみ行う。
// http.ErrAbortHandlerは接続を切るための意図的なpanicなので再送出する。
func NewRecoveryMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	collector = metrics.OrNop(collector)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				slog.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", v),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("response_started", rec.written),
					slog.String("stack", string(debug.Stack())),
				)
				collector.RecordHTTPStatus(http.StatusInternalServerError)

				if !rec.written {
					WriteInternalServerError(rec)
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
