package device

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Config configures a Device. The zero value is valid: it discards logs
// and uses the default 1% duty-cycle budget, mirroring the
// teacher's joinserver.HandlerConfig "default everything, override what
// you need" shape.
type Config struct {
	// Logger receives Trace/Debug state-transition logs and Warn entries
	// for ReplayOrGap, FOpts overflow, and duty-cycle budget excess
	// (spec §7's "emits a trace event"). Defaults to a discarding logger.
	Logger *logrus.Logger

	// DutyCycleBudget overrides the fraction of dutyCycleWindow this
	// device may transmit. Zero means defaultDutyCycleBudget.
	DutyCycleBudget float64

	// TxPowerDBm is used only for the link-margin diagnostic attached to
	// a Downlink; it has no effect on what the radio actually transmits
	// at (that's a property of the Port, outside this module's control).
	TxPowerDBm float32
}

func (c Config) logger() *logrus.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (c Config) dutyCycleBudget() float64 {
	if c.DutyCycleBudget > 0 {
		return c.DutyCycleBudget
	}
	return defaultDutyCycleBudget
}

func (c Config) txPowerDBm() float32 {
	if c.TxPowerDBm != 0 {
		return c.TxPowerDBm
	}
	return 14.0
}
