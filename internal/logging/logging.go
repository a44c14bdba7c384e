package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sonirico/eventer"
)

// SetupLogger configures the global logger to pretty print on stderr at the
// level selected by verbosity.
func SetupLogger(verbosity int) {
	SetupLoggerWithWriter(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}, verbosity)
}

// SetupLoggerWithWriter is SetupLogger writing to w.
func SetupLoggerWithWriter(w io.Writer, verbosity int) {
	zerolog.SetGlobalLevel(Level(verbosity))

	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	// Add caller information for debug and trace levels
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	log.Debug().Int("verbosity", verbosity).Msg("Logger initialized")
}

// Level maps the number of -v flags to a zerolog level.
func Level(verbosity int) zerolog.Level {
	switch verbosity {
	case 0:
		return zerolog.WarnLevel
	case 1:
		return zerolog.InfoLevel
	case 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// GetLogger returns a contextualized logger with the given name
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// Eventer adapts the named global logger to the registry and relay Logger.
func Eventer(name string) eventer.Logger {
	return eventer.NewZerologLogger(GetLogger(name))
}
