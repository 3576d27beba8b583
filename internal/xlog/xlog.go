// Package xlog owns the process-wide zap logger. It follows the same shape
// as teranos-QNTX/logger: a no-op logger until Initialize is called, so
// packages can log during init() without nil-pointer panics.
package xlog

import (
	"os"

	"go.uber.org/zap"
)

var base = zap.NewNop()

// Initialize sets up the global logger. jsonOutput selects a structured
// production encoder; otherwise a plain console encoder is used.
func Initialize(jsonOutput bool) error {
	var err error
	if jsonOutput {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		base, err = cfg.Build()
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "t"
		cfg.OutputPaths = []string{"stderr"}
		base, err = cfg.Build()
	}
	if err != nil {
		base = zap.NewNop()
		return err
	}
	return nil
}

// Get returns a named sugared logger derived from the process-wide base.
func Get(name string) *zap.SugaredLogger {
	return base.Named(name).Sugar()
}

func init() {
	if os.Getenv("GU_MEDIATOR_DEBUG") != "" {
		_ = Initialize(false)
	}
}
