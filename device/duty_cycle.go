package device

import (
	"time"

	"github.com/tweedegolf/lorawan-device/airtime"
	"github.com/tweedegolf/lorawan-device/region"
)

// dutyCycleTracker accumulates airtime over a rolling window so the
// engine can log (not enforce) excess over the Config duty-cycle budget,
// SPEC_FULL's wiring of the airtime package. A DutyCycleReq's MaxDCCycle
// does not change that budget. It measures in wall-clock time deliberately: duty-cycle
// sub-band accounting spans minutes to hours, an axis the short,
// DelayUs-driven RX timing in this package never touches.
type dutyCycleTracker struct {
	windowStart time.Time
	used        time.Duration
	budget      float64
}

func newDutyCycleTracker(budget float64) *dutyCycleTracker {
	return &dutyCycleTracker{windowStart: time.Now(), budget: budget}
}

// record adds txDuration to the window, resetting it if dutyCycleWindow
// has elapsed, and returns the fraction of the budget now in use.
func (t *dutyCycleTracker) record(txDuration time.Duration) float64 {
	now := time.Now()
	if now.Sub(t.windowStart) >= dutyCycleWindow {
		t.windowStart = now
		t.used = 0
	}
	t.used += txDuration
	return (float64(t.used) / float64(dutyCycleWindow)) / t.budget
}

// airtimeFor computes the on-air duration of a frame at the given data
// rate, for duty-cycle accounting.
func airtimeFor(dr region.DataRate, frameLen int) (time.Duration, error) {
	return airtime.CalculateLoRaAirtime(
		frameLen,
		dr.SpreadFactor,
		dr.Bandwidth,
		8,     // preamble symbols, LoRaWAN default
		airtime.CodingRate45,
		true,  // explicit header
		false, // low data-rate optimization not applied, at any SF
	)
}
