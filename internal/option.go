package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config      *Config
	logOutput   io.Writer
	projectRoot string
	specsDir    string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects the JSON log stream. RunMCP defaults to stderr
// because stdout carries the protocol.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithProjectRoot registers the project rooted at dir on start and makes it
// the active project. Run only.
func WithProjectRoot(dir string) Option {
	return func(a *application) {
		a.projectRoot = dir
	}
}

// WithSpecsDir makes RunMCP serve a single specs directory instead of the
// registered projects. Every project id resolves to it. Run rejects it.
func WithSpecsDir(dir string) Option {
	return func(a *application) {
		a.specsDir = dir
	}
}
