package device

import "time"

// Timing contract constants, spec §4.4.
const (
	// DelayMargin is subtracted from every receive-window deadline so the
	// radio is armed slightly before the network could possibly transmit.
	DelayMargin = 20 * time.Microsecond

	// RxTimeout bounds a single receive window: long enough for preamble
	// detection, short enough to leave room for RX2 to start on time.
	RxTimeout = 500 * time.Millisecond

	// TxTimeout is a radio-layer failure, not a "no downlink" outcome.
	TxTimeout = 4 * time.Second

	// Interval is the poll period while blocking on a radio operation.
	Interval = 100 * time.Millisecond

	// rx2Offset is added to RxDelay to derive the RX2 window's start,
	// spec §4.4: "RX2 listen starts at t0 + (RxDelay + 1s) - DELAY_MARGIN".
	rx2Offset = 1 * time.Second
)

// txCodingRate is the coding rate denominator (4/5) this module always
// transmits with; LoRaWAN does not negotiate it per uplink.
const txCodingRate = 5

// dutyCycleWindow is the rolling window EU868's 1% sub-band duty cycle is
// measured over. The engine logs against the configured budget and does
// not enforce it; a DutyCycleReq's MaxDCCycle is not applied.
const dutyCycleWindow = time.Hour

// defaultDutyCycleBudget is the fraction of dutyCycleWindow this device
// may transmit when Config.DutyCycleBudget is zero.
const defaultDutyCycleBudget = 0.01
