package main

import (
	"go.uber.org/zap"

	"platedesign/internal/config"
	"platedesign/internal/observability"
)

// session is a loaded description plus the logger it asks for.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
}

func openSession(opts *rootOptions) (*session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	level, format := cfg.Logging.Level, cfg.Logging.Format
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	if opts.logFormat != "" {
		format = opts.logFormat
	}
	if opts.verbose {
		level = "debug"
	}
	logger, err := observability.NewLogger(level, format)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("experiment", cfg.Name))
	logger.Debug("configuration loaded", zap.String("path", opts.configPath))
	return &session{cfg: cfg, logger: logger}, nil
}

func (s *session) close() {
	if s != nil && s.logger != nil {
		_ = s.logger.Sync()
	}
}
