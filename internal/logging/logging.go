// Package logging builds the single *glog.BaseLogger the CLI constructs at
// startup and hands to the runner. The edit engine
// itself (internal/edit, internal/editlang) stays logger-free.
package logging

import (
	"github.com/goliatone/go-logger/glog"
)

// Options controls the logger the CLI builds. Zero value gives a pretty,
// info-level logger named "clibate".
type Options struct {
	Name    string
	Level   string
	Verbose bool
}

// New constructs the root logger for a clibate run. Level accepts the
// glog level names ("trace", "debug", "info", "warn", "error", "fatal");
// an unrecognized or empty value falls back to Info, except that an
// empty value gives Debug when Verbose is set.
func New(opts Options) *glog.BaseLogger {
	name := opts.Name
	if name == "" {
		name = "clibate"
	}

	level := levelFromString(opts.Level)
	if opts.Level == "" && opts.Verbose {
		level = glog.Debug
	}

	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(level),
		glog.WithName(name),
	)
}

func levelFromString(s string) glog.Level {
	switch s {
	case "trace":
		return glog.Trace
	case "debug":
		return glog.Debug
	case "warn", "warning":
		return glog.Warn
	case "error":
		return glog.Error
	case "fatal":
		return glog.Fatal
	default:
		return glog.Info
	}
}
