package log

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Logger = zerolog.Logger

// New returns the process logger. Local runs get a console writer at debug
// level; everything else is JSON at info.
func New(env string) Logger {
	if env == "local" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
		return log.Level(zerolog.DebugLevel)
	}
	return log.Level(zerolog.InfoLevel)
}

// Nop returns a logger that discards everything; used by tests.
func Nop() Logger {
	return zerolog.Nop()
}
