package runtime

import (
	"go.uber.org/zap"
)

// Option configures a Runtime.
type Option func(*config)

type config struct {
	logger      *zap.Logger
	programName string
	sysPath     []string
	printErrors bool
}

func defaultConfig() config {
	return config{printErrors: true}
}

// WithLogger sets the logger used by the runtime and the engine.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithSysPath prepends dirs to sys.path. The first dir ends up first.
func WithSysPath(dirs ...string) Option {
	return func(c *config) {
		c.sysPath = append(c.sysPath, dirs...)
	}
}

// WithErrorPrinting controls whether exceptions raised by Exec and Eval are
// printed to sys.stderr. Enabled by default.
func WithErrorPrinting(enabled bool) Option {
	return func(c *config) {
		c.printErrors = enabled
	}
}

// WithProgramName sets the interpreter's program name.
func WithProgramName(name string) Option {
	return func(c *config) {
		c.programName = name
	}
}
