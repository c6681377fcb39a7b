package logger

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// StoreOpKey is the context key naming the store operation behind a query.
const StoreOpKey ContextKey = "store_op"

// maxSQLLength bounds the statement text kept in a query record.
const maxSQLLength = 1000

// ContextWithStoreOp returns a copy of ctx whose queries are logged as op,
// e.g. "users.search".
func ContextWithStoreOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, StoreOpKey, op)
}

// GetStoreOp extracts the store operation from ctx.
func GetStoreOp(ctx context.Context) string {
	if op, ok := ctx.Value(StoreOpKey).(string); ok {
		return op
	}
	return ""
}

// GormLogger writes GORM records to zap. Query records carry the store_op
// and request_id found in the query context.
type GormLogger struct {
	ZapLogger     *zap.Logger
	SlowThreshold time.Duration
	LogLevel      gormlogger.LogLevel
}

// NewGormLoggerWithConfig creates a GORM logger. logLevel takes the
// application levels; debug maps to GORM's info so every query is logged.
func NewGormLoggerWithConfig(zapLogger *zap.Logger, slowQuerySeconds float64, logLevel string) *GormLogger {
	return &GormLogger{
		ZapLogger:     zapLogger.Named("gorm"),
		SlowThreshold: time.Duration(slowQuerySeconds * float64(time.Second)),
		LogLevel:      gormLevel(logLevel),
	}
}

func gormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.LogLevel = level
	return &c
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Info {
		l.with(ctx).Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Warn {
		l.with(ctx).Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Error {
		l.with(ctx).Sugar().Errorf(msg, data...)
	}
}

// Trace logs one executed statement. Failed statements log at error, slow
// ones at warn and the rest only at info. A missing row is not a failure:
// Delete looks a user up before removing it.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := l.SlowThreshold > 0 && elapsed > l.SlowThreshold

	var level zapcore.Level
	var msg string
	switch {
	case failed:
		level, msg = zapcore.ErrorLevel, "query failed"
	case slow && l.LogLevel >= gormlogger.Warn:
		level, msg = zapcore.WarnLevel, "slow query"
	case l.LogLevel >= gormlogger.Info:
		level, msg = zapcore.InfoLevel, "query"
	default:
		return
	}

	sql, rows := fc()
	fields := append(queryFields(sql), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed))
	if failed {
		fields = append(fields, zap.Error(err))
	}
	if slow {
		fields = append(fields, zap.Duration("threshold", l.SlowThreshold))
	}

	l.with(ctx).Log(level, msg, fields...)
}

// with tags the logger with the request and store operation of ctx.
func (l *GormLogger) with(ctx context.Context) *zap.Logger {
	log := WithContext(ctx, l.ZapLogger)
	if op := GetStoreOp(ctx); op != "" {
		log = log.With(zap.String("store_op", op))
	}
	return log
}

func queryFields(sql string) []zap.Field {
	if len(sql) <= maxSQLLength {
		return []zap.Field{zap.String("sql", sql)}
	}
	return []zap.Field{zap.String("sql", truncateSQL(sql, maxSQLLength)+"..."), zap.Bool("sql_truncated", true)}
}

// truncateSQL cuts s to at most n bytes without splitting a rune, so a
// multi-byte search argument never leaves invalid UTF-8 in the record.
func truncateSQL(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
