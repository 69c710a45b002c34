package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Initialize builds the service logger. Production gets JSON with ISO8601
// timestamps; anything else gets the colored console encoder. When cloudWatch
// is non-nil every entry is also written to it as JSON.
func Initialize(env string, cloudWatch io.Writer) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if cloudWatch == nil {
		return cfg.Build()
	}

	level := zap.NewAtomicLevelAt(cfg.Level.Level())
	console := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg.EncoderConfig), zapcore.AddSync(os.Stdout), level)

	cwEncoderCfg := cfg.EncoderConfig
	cwEncoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	remote := zapcore.NewCore(zapcore.NewJSONEncoder(cwEncoderCfg), zapcore.AddSync(cloudWatch), level)

	return zap.New(zapcore.NewTee(console, remote), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
