// Package logger initializes and configures the global zerolog instance.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds configuration options for the application logger.
type Config struct {
	Level  string `long:"level" env:"LEVEL" ini-name:"log_level" description:"Log level (trace, debug, info, warn, error)" default:"info"`
	Format string `long:"format" env:"FORMAT" ini-name:"log_format" description:"Log format (console or json)" default:"console"`
	Output string `long:"output" env:"OUTPUT" ini-name:"log_output" description:"Log output (stdout, stderr or file path)" default:"stdout"`
}

// Setup initializes the global logger based on the provided configuration options.
// Records of warn level and above are additionally written to stderr when the
// main output is not stderr, so errors always reach a separate channel.
func Setup(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writer io.Writer
	switch cfg.Output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			tempLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			tempLogger.Error().Err(err).Str("path", cfg.Output).Msg("Failed to open log file, falling back to stdout")
			writer = os.Stdout
		} else {
			writer = file
		}
	}

	primary := format(writer, cfg.Format)
	if writer == os.Stderr {
		log.Logger = zerolog.New(primary).With().Timestamp().Logger()
		return
	}

	errs := LevelFilter{Writer: format(os.Stderr, cfg.Format), Min: zerolog.WarnLevel}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(primary, errs)).With().Timestamp().Logger()
}

// format wraps the writer with a console writer unless json output is requested.
func format(writer io.Writer, kind string) io.Writer {
	if kind == "json" {
		return writer
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        writer,
		TimeFormat: time.RFC3339,
	}

	// Detect colors: check if writer is file/tty AND NO_COLOR is not set
	if f, ok := writer.(*os.File); ok {
		if os.Getenv("NO_COLOR") != "" || !isTerminal(f) {
			consoleWriter.NoColor = true
		}
	}

	return consoleWriter
}

// LevelFilter passes through only records at or above Min.
type LevelFilter struct {
	Writer io.Writer
	Min    zerolog.Level
}

// Write passes records of unknown level through unchanged.
func (f LevelFilter) Write(p []byte) (int, error) {
	return f.Writer.Write(p)
}

// WriteLevel implements zerolog.LevelWriter.
func (f LevelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.Min || level == zerolog.NoLevel {
		return len(p), nil
	}

	return f.Writer.Write(p)
}

// isTerminal reports whether f is a terminal, including Cygwin/MSYS pseudo terminals.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
