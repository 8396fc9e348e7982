package logger

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"college/internal/config"
)

// Reporter records failures that need attention.
type Reporter interface {
	Error(msg string, args ...any)
	Close()
}

// Std writes reports to a standard logger only.
type Std struct {
	std *log.Logger
}

func NewStd(std *log.Logger) *Std {
	return &Std{std: std}
}

func (l *Std) Error(msg string, args ...any) {
	printAll(l.std, msg, args)
}

func (l *Std) Close() {}

// Rollbar forwards reports to Rollbar and mirrors them to the standard logger.
type Rollbar struct {
	std *log.Logger
}

// NewRollbar configures the global rollbar client from cfg.
func NewRollbar(std *log.Logger, cfg config.App, component string) *Rollbar {
	rollbar.SetToken(cfg.RollbarToken)
	rollbar.SetEnvironment(cfg.Env)
	rollbar.SetServerHost(component)
	rollbar.SetStackTracer(errors.StackTracer)
	return &Rollbar{std: std}
}

// expected args: error, map[string]interface{}
func (l *Rollbar) Error(msg string, args ...any) {
	rollbar.Error(append([]any{msg}, args...)...)
	printAll(l.std, msg, args)
}

// Close flushes pending reports.
func (l *Rollbar) Close() {
	rollbar.Close()
}

// New picks the Rollbar reporter when a token is configured.
func New(std *log.Logger, cfg config.App, component string) Reporter {
	if cfg.RollbarToken == "" {
		return NewStd(std)
	}
	return NewRollbar(std, cfg, component)
}

func printAll(std *log.Logger, msg string, args []any) {
	std.Println(msg)
	for _, arg := range args {
		std.Printf("%+v\n", arg)
	}
}
