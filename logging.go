package nctx

import "time"

// LogEvent describes a scope lifecycle step or an evaluation for logging.
type LogEvent struct {
	Op       string
	Context  string
	Registry string
	Parent   string
	Ref      any
	Deep     bool
	Joined   bool
	Skipped  bool
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
}

// Logger records scope events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// WithLogger attaches a logger to the Context. See pkg/logsink for slog and
// zap adapters.
func WithLogger(logger Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
