package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// buildLogger constructs a zap.Logger at the given level (e.g. "debug",
// "info", "warn"), falling back to info on an unrecognized value.
func buildLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	return cfg.Build()
}
