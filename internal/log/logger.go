package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

func SetupConsoleLogger() {
	setup(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func SetupJSONLogger() {
	setup(os.Stderr)
}

// Setup configures the global logger with the given output format and level.
func Setup(format, level string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatConsole:
		SetupConsoleLogger()
	case FormatJSON:
		SetupJSONLogger()
	default:
		return fmt.Errorf("unsupported log format %s", format)
	}

	return SetLogLevel(level)
}

func setup(w io.Writer) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	log.Logger = zerolog.New(w).
		With().
		Timestamp().
		Stack().
		Caller().
		Logger()
}

func SetLogLevel(logLevel string) error {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	return nil
}
