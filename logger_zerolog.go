package eventer

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger adapts a zerolog.Logger to Logger. Fields added with
// WithField become zerolog context fields.
func NewZerologLogger(l zerolog.Logger) Logger {
	return zerologLogger{logger: l}
}

func (z zerologLogger) WithField(key string, value any) Logger {
	return zerologLogger{logger: z.logger.With().Interface(key, value).Logger()}
}

func (z zerologLogger) Debug(args ...any) { z.logger.Debug().Msg(fmt.Sprint(args...)) }
func (z zerologLogger) Debugf(format string, args ...any) {
	z.logger.Debug().Msgf(format, args...)
}
func (z zerologLogger) Debugln(args ...any) { z.logger.Debug().Msg(sprintln(args...)) }

func (z zerologLogger) Info(args ...any) { z.logger.Info().Msg(fmt.Sprint(args...)) }
func (z zerologLogger) Infof(format string, args ...any) {
	z.logger.Info().Msgf(format, args...)
}
func (z zerologLogger) Infoln(args ...any) { z.logger.Info().Msg(sprintln(args...)) }

func (z zerologLogger) Warn(args ...any) { z.logger.Warn().Msg(fmt.Sprint(args...)) }
func (z zerologLogger) Warnf(format string, args ...any) {
	z.logger.Warn().Msgf(format, args...)
}
func (z zerologLogger) Warnln(args ...any) { z.logger.Warn().Msg(sprintln(args...)) }

func (z zerologLogger) Error(args ...any) { z.logger.Error().Msg(fmt.Sprint(args...)) }
func (z zerologLogger) Errorf(format string, args ...any) {
	z.logger.Error().Msgf(format, args...)
}
func (z zerologLogger) Errorln(args ...any) { z.logger.Error().Msg(sprintln(args...)) }

func sprintln(args ...any) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}
