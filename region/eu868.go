package region

import (
	"fmt"
	"time"
)

// eu868 implements the EU868 channel plan from spec §3: three join/uplink
// channels at 868.1/868.3/868.5 MHz, a single RX2 channel at 869.525 MHz,
// and DR0..DR6 (DR7, the FSK rate, is out of scope — this module only
// drives LoRa modulation).
type eu868 struct {
	channels   [3]Channel
	dataRates  [7]DataRate
	maxPayload [7]int
}

func newEU868() Region {
	return &eu868{
		channels: [3]Channel{
			{FreqKHz: 868100, MinDR: 0, MaxDR: 5},
			{FreqKHz: 868300, MinDR: 0, MaxDR: 5},
			{FreqKHz: 868500, MinDR: 0, MaxDR: 5},
		},
		dataRates: [7]DataRate{
			{SpreadFactor: 12, Bandwidth: 125},
			{SpreadFactor: 11, Bandwidth: 125},
			{SpreadFactor: 10, Bandwidth: 125},
			{SpreadFactor: 9, Bandwidth: 125},
			{SpreadFactor: 8, Bandwidth: 125},
			{SpreadFactor: 7, Bandwidth: 125},
			{SpreadFactor: 7, Bandwidth: 250},
		},
		maxPayload: [7]int{51, 51, 51, 115, 222, 222, 222},
	}
}

func (b *eu868) Name() string { return string(EU868) }

func (b *eu868) JoinAcceptDelay1() time.Duration { return 5 * time.Second }
func (b *eu868) JoinAcceptDelay2() time.Duration { return 6 * time.Second }

func (b *eu868) NumDataRates() int { return len(b.dataRates) }

func (b *eu868) DataRateTable(dr int) (DataRate, error) {
	if dr < 0 || dr >= len(b.dataRates) {
		return DataRate{}, fmt.Errorf("region: data-rate index %d out of range", dr)
	}
	return b.dataRates[dr], nil
}

func (b *eu868) MaxPayload(dr int) (int, error) {
	if dr < 0 || dr >= len(b.maxPayload) {
		return 0, fmt.Errorf("region: data-rate index %d out of range", dr)
	}
	return b.maxPayload[dr], nil
}

func (b *eu868) JoinChannel(noise byte) Channel {
	return b.channels[int(noise)%len(b.channels)]
}

func (b *eu868) TxChannel(noise byte) Channel {
	return b.channels[int(noise)%len(b.channels)]
}

// Rx1Channel implements spec §4.4: for EU868, RX1_freq = TX_freq and
// RX1_dr = max(0, TxDr - Rx1DrOffset).
func (b *eu868) Rx1Channel(txFreqKHz uint32, txDR int, rx1DrOffset int) (Channel, int, error) {
	rx1DR := txDR - rx1DrOffset
	if rx1DR < 0 {
		rx1DR = 0
	}
	if rx1DR >= len(b.dataRates) {
		return Channel{}, 0, fmt.Errorf("region: derived RX1 data-rate %d out of range", rx1DR)
	}
	return Channel{FreqKHz: txFreqKHz, MinDR: 0, MaxDR: len(b.dataRates) - 1}, rx1DR, nil
}

func (b *eu868) Rx2Channel(rx2Dr int) (Channel, error) {
	if rx2Dr < 0 || rx2Dr >= len(b.dataRates) {
		return Channel{}, fmt.Errorf("region: RX2 data-rate %d out of range", rx2Dr)
	}
	return Channel{FreqKHz: 869525, MinDR: 0, MaxDR: len(b.dataRates) - 1}, nil
}

func (b *eu868) DefaultRx2DR() int { return 0 }
