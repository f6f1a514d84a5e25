package app

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
	"github.com/yairfalse/kaksonen/internal/logger"
	"github.com/yairfalse/kaksonen/pkg/config"
)

// AppFactory creates and configures the application with all dependencies
type AppFactory struct {
	// Out receives command results; stdout when nil
	Out io.Writer
}

// NewAppFactory creates a factory writing results to stdout
func NewAppFactory() *AppFactory {
	return &AppFactory{}
}

// Create builds an App from validated configuration
func (f *AppFactory) Create(cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, kerrors.ConfigurationError(err.Error())
	}

	a := &App{
		config: cfg,
		out:    f.Out,
	}
	if a.out == nil {
		a.out = os.Stdout
	}

	if err := a.setupLogging(opts); err != nil {
		return nil, err
	}
	return a, nil
}

// setupLogging configures the logger based on config and flags
func (a *App) setupLogging(opts Options) error {
	var output io.Writer = os.Stderr
	if a.config.Logging.File != "" {
		file, err := os.OpenFile(a.config.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return kerrors.ConfigurationError("cannot open log file " + a.config.Logging.File).WithCause(err.Error())
		}
		output = file
		a.logFile = file
	}

	logrusLogger, err := logger.New(logger.Options{
		Level:  a.config.Logging.Level,
		Format: a.config.Logging.Format,
		Output: output,
	})
	if err != nil {
		return kerrors.ConfigurationError(err.Error())
	}

	// Use JSON formatter for debug mode
	if opts.Debug {
		logrusLogger.SetLevel(logrus.DebugLevel)
		logrusLogger.SetFormatter(&logrus.JSONFormatter{})
		logrusLogger.Debug("Debug logging enabled")
	}

	a.logger = logrusLogger
	return nil
}
