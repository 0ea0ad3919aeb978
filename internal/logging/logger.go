// Package logging builds the zap loggers used across the service.
package logging

import (
	"fmt"

	"github.com/ammiranda/taxonomy_service/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger for the environment. Production gets JSON output with
// sampling; everything else gets the colored development encoder.
func New(env config.Environment, level string) (*zap.Logger, error) {
	var zapConfig zap.Config
	if env == config.Production {
		zapConfig = zap.NewProductionConfig()
		zapConfig.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	atomicLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = atomicLevel
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func parseLevel(level string) (zap.AtomicLevel, error) {
	switch level {
	case "", "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel), nil
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel), nil
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel), nil
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel), nil
	default:
		return zap.AtomicLevel{}, fmt.Errorf("unknown log level %q", level)
	}
}
