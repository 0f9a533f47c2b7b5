package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger writes JSON to the rotated log file, or to stderr when no file
// is configured.
func newLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer
	if cfg.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, level)
	return zap.New(core, zap.AddCaller()).With(zap.Int("pid", os.Getpid())), nil
}
