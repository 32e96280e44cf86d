// Package logging is a thin wrapper of zap logging library.
//
// Log level of a package is taken from the PCSC_TERMINAL_LOG_<PKG> environment
// variable, falling back to PCSC_TERMINAL_LOG. Only the first letter counts:
// D(ebug), I(nfo), W(arn), E(rror). The default is warn, so that log lines do
// not interleave with the interactive output.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "PCSC_TERMINAL_LOG"

var (
	root = func() *zap.Logger {
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.Lock(os.Stderr),
			zap.DebugLevel,
		)
		return zap.New(core)
	}()

	levelsMu     sync.Mutex
	levels       = map[string]zap.AtomicLevel{}
	defaultLevel = zapcore.WarnLevel
)

// New creates a logger initialized with configured log level.
//
// By convention, this should appear in the same .go file as the package docstring:
//
//	var logger = logging.New("Foo")
func New(pkg string) *zap.Logger {
	return root.Named(pkg).WithOptions(zap.IncreaseLevel(GetLevel(pkg)))
}

// GetLevel returns the level shared by all loggers of a package.
func GetLevel(pkg string) zap.AtomicLevel {
	levelsMu.Lock()
	defer levelsMu.Unlock()

	lvl, ok := levels[pkg]
	if !ok {
		lvl = zap.NewAtomicLevelAt(ParseLevel(envLevel(pkg), defaultLevel))
		levels[pkg] = lvl
	}
	return lvl
}

// SetLevel changes the level of every package logger whose level was not
// given in the environment, either per package or globally. The argument
// follows the environment syntax; an empty string changes nothing.
func SetLevel(s string) {
	if s == "" {
		return
	}

	levelsMu.Lock()
	defer levelsMu.Unlock()
	l := ParseLevel(s, defaultLevel)
	for pkg, lvl := range levels {
		if envLevel(pkg) == "" {
			lvl.SetLevel(l)
		}
	}
	defaultLevel = l
}

func envLevel(pkg string) string {
	if lvl := os.Getenv(envPrefix + "_" + strings.ToUpper(pkg)); lvl != "" {
		return lvl
	}
	return os.Getenv(envPrefix)
}

// ParseLevel converts a level letter or word to a zap level.
// Empty or unrecognized input yields fallback.
func ParseLevel(s string, fallback zapcore.Level) zapcore.Level {
	if s == "" {
		return fallback
	}
	switch s[0] {
	case 'V', 'v', 'D', 'd':
		return zapcore.DebugLevel
	case 'I', 'i':
		return zapcore.InfoLevel
	case 'W', 'w':
		return zapcore.WarnLevel
	case 'E', 'e':
		return zapcore.ErrorLevel
	case 'F', 'f', 'N', 'n':
		return zapcore.DPanicLevel
	}
	return fallback
}
