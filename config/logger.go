package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger in development and a JSON logger elsewhere.
func NewLogger(cfg *Config) *zap.Logger {
	var zc zap.Config
	if cfg != nil && cfg.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if cfg != nil && cfg.Debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return zap.NewExample()
	}
	if cfg != nil {
		logger = logger.With(zap.String("app", cfg.AppName))
	}
	return logger
}
