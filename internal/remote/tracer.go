package remote

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alexanderramin/arbor/internal/metrics"
	"github.com/jackc/pgx/v5"
)

type traceKey struct{}

type traceStart struct {
	at  time.Time
	sql string
}

// SlowQueryTracer logs and counts remote queries slower than threshold.
type SlowQueryTracer struct {
	logger    *slog.Logger
	threshold time.Duration
}

func NewSlowQueryTracer(logger *slog.Logger, threshold time.Duration) *SlowQueryTracer {
	if threshold == 0 {
		threshold = 250 * time.Millisecond
	}
	return &SlowQueryTracer{logger: logger, threshold: threshold}
}

func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceStart{at: time.Now(), sql: data.SQL})
}

func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(traceKey{}).(traceStart)
	if !ok {
		return
	}
	took := time.Since(start.at)
	if took <= t.threshold {
		return
	}

	sql := strings.Join(strings.Fields(start.sql), " ")
	if len(sql) > 200 {
		sql = sql[:200] + "..."
	}
	command := "unknown"
	if fields := strings.Fields(sql); len(fields) > 0 {
		command = strings.ToUpper(fields[0])
	}

	t.logger.Warn("slow remote query",
		"sql", sql,
		"took", took,
		"command_tag", data.CommandTag.String(),
		"error", data.Err,
	)
	metrics.IncrementSlowQuery(command)
}
