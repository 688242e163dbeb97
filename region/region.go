// Package region provides the compile-time channel-frequency and data-rate
// tables for each supported LoRaWAN region, and the lookups the MAC engine
// needs to pick a channel for a transmission or receive window.
package region

import (
	"fmt"
	"time"
)

// Name identifies a supported region.
type Name string

// EU868 is the only region shipped today; the registry shape below leaves
// room for more without changing the Region interface.
const EU868 Name = "EU868"

// Modulation is always LoRa for the regions implemented here.
type Modulation string

// LoRaModulation is the only modulation this module encodes/decodes for.
const LoRaModulation Modulation = "LORA"

// DataRate describes one entry of a region's data-rate table.
type DataRate struct {
	SpreadFactor int // SF7..SF12
	Bandwidth    int // kHz: 125 or 250
}

// Channel is a single uplink/downlink frequency and its allowed DR range.
type Channel struct {
	FreqKHz uint32
	MinDR   int
	MaxDR   int
}

// Region is the contract the MAC engine drives. Implementations are
// immutable, compile-time tables — there is no runtime channel negotiation
// beyond what NewChannelReq/LinkADRReq apply to the session's own state.
type Region interface {
	Name() string

	// JoinAcceptDelay1/2 are the fixed receive-window delays after a
	// JoinRequest (§4.4).
	JoinAcceptDelay1() time.Duration
	JoinAcceptDelay2() time.Duration

	// MaxPayload returns the maximum FRMPayload size for a given DR index.
	MaxPayload(dr int) (int, error)

	// NumDataRates returns how many DR table entries this region defines.
	NumDataRates() int

	// DataRateTable returns the {spreading-factor, bandwidth} pair for dr.
	DataRateTable(dr int) (DataRate, error)

	// JoinChannel picks one of the join/uplink channels using noise as an
	// index source (index = noise mod N), for use both pre-join and for
	// ordinary uplinks (the teacher's EU868 table uses the same three
	// channels for both).
	JoinChannel(noise byte) Channel

	// TxChannel picks an uplink channel the same way as JoinChannel; kept
	// as a distinct method since other regions (not yet implemented here)
	// use disjoint join/uplink channel plans.
	TxChannel(noise byte) Channel

	// Rx1Channel derives the RX1 channel/DR from the uplink channel and
	// the session's Rx1DrOffset.
	Rx1Channel(txFreqKHz uint32, txDR int, rx1DrOffset int) (Channel, int, error)

	// Rx2Channel returns the single fixed RX2 channel after checking that
	// rx2Dr is in range; DataRateTable gives that data rate's entry.
	Rx2Channel(rx2Dr int) (Channel, error)

	// DefaultRx2DR is the region default used for the join-accept's second
	// receive window, before any RXParamSetupReq has changed it.
	DefaultRx2DR() int
}

var registry = map[Name]func() Region{
	EU868: newEU868,
}

// Get returns the Region implementation registered under name.
func Get(name Name) (Region, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("region: unsupported region %q", name)
	}
	return ctor(), nil
}
