// Package logging configures the process-wide zerolog defaults and hands out
// component-scoped loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel  = "AGENTLINK_LOG_LEVEL"
	EnvLogFormat = "AGENTLINK_LOG_FORMAT" // "console" or "json"
)

// Profile selects baseline defaults for a process kind.
type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var (
	configureOnce sync.Once
	root          zerolog.Logger
)

// Configure initializes the root logger once. Environment variables override
// the profile defaults.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		level := zerolog.InfoLevel
		if profile == ProfileTest {
			level = zerolog.DebugLevel
		}
		if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
			level = lvl
		}

		var out io.Writer = os.Stderr
		if strings.EqualFold(os.Getenv(EnvLogFormat), "console") || profile == ProfileTest {
			out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
		}
		root = zerolog.New(out).Level(level).With().Timestamp().Logger()
	})
}

// New returns a logger tagged with a component name. Configure must have
// run; callers that skip it get a silent logger.
func New(component string) zerolog.Logger {
	return root.With().Str("component", component).Logger()
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	default:
		return zerolog.NoLevel, false
	}
}
