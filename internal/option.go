package internal

import (
	"io"

	"github.com/starford/scriptorium/internal/asr"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	engine    asr.Engine
	noEngine  bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects the JSON log stream. The MCP command logs to
// stderr because stdout carries the protocol.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithEngine supplies a ready speech engine instead of loading one from
// the asr configuration.
func WithEngine(e asr.Engine) Option {
	return func(a *application) {
		a.engine = e
	}
}

// WithoutEngine skips loading the speech engine. Commands that only read
// the repository use it to avoid the model start-up cost.
func WithoutEngine() Option {
	return func(a *application) {
		a.noEngine = true
	}
}
