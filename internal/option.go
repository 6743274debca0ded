package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	output    io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects structured logs, stdout by default. The MCP
// transport owns stdout, so it logs elsewhere.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithOutput sets where one-shot commands write their JSON result.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.output = w
	}
}
