// Package radio declares the Radio Port contract (spec §6.1) the MAC
// engine drives. A hardware driver implementing it is out of scope for
// this module (spec §1); radiotest provides a deterministic mock for
// tests and the cmd/devicesim reference binary.
package radio

import "time"

// ChannelConfig configures the radio for a single transmit or receive
// operation, per spec §6.1's set_channel.
type ChannelConfig struct {
	FreqKHz uint32
	BwKHz   uint16
	SF      uint8 // 7..12
	CR      uint8 // 4/5 coding rate denominator
}

// Info carries the receive diagnostics a Port reports alongside a received
// frame (spec §6.1).
type Info struct {
	RSSI int16
	SNR  int8
}

// Port is the capability set spec §4.5/§6.1 requires of the embedding
// firmware's radio driver. start_*/check_* are split into non-blocking
// pairs so the MAC engine can poll them on its own INTERVAL (spec §4.4)
// without the port itself owning any timing policy.
type Port interface {
	// SetChannel configures the radio for the next StartTransmit or
	// StartReceive call.
	SetChannel(cfg ChannelConfig) error

	// StartTransmit begins sending data; non-blocking.
	StartTransmit(data []byte) error
	// CheckTransmit reports whether the in-flight transmit has completed.
	CheckTransmit() (bool, error)

	// StartReceive begins listening; non-blocking. restart re-arms the
	// receiver without tearing down an in-progress preamble detection,
	// for the §4.4 "preamble seen, busy, keep listening" rule.
	StartReceive(restart bool) error
	// CheckReceive reports whether a complete frame is available.
	CheckReceive() (bool, error)
	// GetReceived copies the received frame into buf and returns the
	// number of bytes written plus the receive diagnostics.
	GetReceived(buf []byte) (int, Info, error)

	// IsBusy reports whether the radio is mid-preamble-detection or
	// mid-reception, used by the §4.4 "continue past RX_TIMEOUT while
	// busy" rule.
	IsBusy() (bool, error)

	// DelayUs blocks the calling goroutine for d, rounded to microsecond
	// resolution; the MAC engine's only suspension point (spec §5).
	DelayUs(d time.Duration)

	// TryFillBytes fills buf with CSPRNG output, used for DevNonce and
	// join/uplink channel selection (spec §4.1/§4.3's noise_byte).
	TryFillBytes(buf []byte) error
}
