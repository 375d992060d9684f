package ticclrun

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/LanguageMachines/ticcltools/internal/ticclio"
)

// ZerologAdapter satisfies ticclio.Logger on top of a zerolog.Logger, the
// concrete logging library every cmd/ticcl-* binary wires in; library
// packages stay logger-agnostic and only ever see the ticclio.Logger
// interface.
type ZerologAdapter struct {
	zerolog.Logger
}

func (z ZerologAdapter) Debugf(format string, args ...any) { z.Logger.Debug().Msgf(format, args...) }
func (z ZerologAdapter) Infof(format string, args ...any)  { z.Logger.Info().Msgf(format, args...) }
func (z ZerologAdapter) Warnf(format string, args ...any)  { z.Logger.Warn().Msgf(format, args...) }

var _ ticclio.Logger = ZerologAdapter{}

// NewLogger builds the console-writer zerolog logger every stage binary
// starts from; verbose raises the level to debug, otherwise info.
func NewLogger(verbose bool) ZerologAdapter {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return ZerologAdapter{Logger: logger}
}
