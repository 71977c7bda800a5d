package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm's query log through the request-scoped logger.
// At the default warn level only failed and slow queries are written.
type GormLogger struct {
	log           *Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func (l *Logger) Gorm(slowThreshold time.Duration) *GormLogger {
	return &GormLogger{log: l, level: gormlogger.Warn, slowThreshold: slowThreshold}
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Info {
		g.log.Info(ctx, fmt.Sprintf(msg, data...))
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.log.scoped(ctx).Warn().Msg(fmt.Sprintf(msg, data...))
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Error {
		g.log.Error(ctx, fmt.Sprintf(msg, data...), nil)
	}
}

// Trace skips not-found and duplicate-key errors; callers map those to
// domain errors themselves.
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && g.level >= gormlogger.Error &&
		!errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, gorm.ErrDuplicatedKey):
		sql, rows := fc()
		g.log.scoped(ctx).Error().
			Err(err).
			Str("sql", sql).
			Int64("rows", rows).
			Dur("elapsed", elapsed).
			Msg("query failed")
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.log.scoped(ctx).Warn().
			Str("sql", sql).
			Int64("rows", rows).
			Dur("elapsed", elapsed).
			Dur("threshold", g.slowThreshold).
			Msg("slow query")
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.log.scoped(ctx).Debug().
			Str("sql", sql).
			Int64("rows", rows).
			Dur("elapsed", elapsed).
			Msg("query")
	}
}
