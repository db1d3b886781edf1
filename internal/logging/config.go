package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Config holds logger configuration options
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error or disabled.
	Level string `yaml:"level" mapstructure:"level"`

	// Format is json, console or auto (console on a terminal).
	Format string `yaml:"format" mapstructure:"format"`

	// Output is stderr, stdout, discard or a file path.
	Output string `yaml:"output" mapstructure:"output"`

	// NoColor disables colors in console format.
	NoColor bool `yaml:"no_color" mapstructure:"no_color"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "auto",
		Output: "stderr",
	}
}

// NewLoggerFromConfig builds a logger from cfg. A nil cfg means DefaultConfig.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		d := DefaultConfig()
		cfg = &d
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(writerFor(cfg)).
		Level(level).
		With().
		Timestamp().
		Logger()

	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// Configure replaces the default logger with one built from cfg.
func Configure(cfg *Config) {
	SetDefault(NewLoggerFromConfig(cfg))
}

func writerFor(cfg *Config) io.Writer {
	var out io.Writer
	file := os.Stderr

	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out, file = os.Stdout, os.Stdout
	case "discard", "none":
		return io.Discard
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			out = os.Stderr
		} else {
			out, file = f, f
		}
	}

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		return consoleWriter(out, cfg.NoColor)
	case "json":
		return out
	default:
		if isTerminal(file) {
			return consoleWriter(out, cfg.NoColor)
		}
		return out
	}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warning":
		return zerolog.WarnLevel
	case "none", "off":
		return zerolog.Disabled
	}
	if l, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && level != "" {
		return l
	}
	return zerolog.InfoLevel
}
