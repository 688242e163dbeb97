// Package radiotest provides a deterministic, scriptable implementation of
// radio.Port for driving spec §8's Scenarios A-F without hardware. It has
// no real-time behavior: the MAC engine's only notion of elapsed time is
// the sum of durations it has asked the port to DelayUs, so a test can
// script "TX completes after 50ms" or "RX1 times out, RX2 answers" without
// actually waiting.
package radiotest

import (
	"errors"
	"time"

	"github.com/tweedegolf/lorawan-device/radio"
)

// Window scripts one receive window's outcome.
type Window struct {
	// RespondAt is the offset from the StartReceive call at which
	// CheckReceive starts returning true. Zero or negative means the
	// window never yields a frame (a timeout).
	RespondAt time.Duration
	Frame     []byte
	Info      radio.Info
	// Busy, if true, makes IsBusy report true until RespondAt, exercising
	// spec §4.4's "preamble seen, busy, keep listening past RX_TIMEOUT"
	// rule.
	Busy bool
}

// Mock is a scripted radio.Port. Zero value is not useful; use New.
type Mock struct {
	elapsed time.Duration

	txCompleteAt time.Duration
	txStarted    bool
	txStartedAt  time.Duration
	lastTxData   []byte

	windows       []Window
	windowIndex   int
	windowStarted bool
	windowStartAt time.Duration

	channels []radio.ChannelConfig

	nonceQueue [][]byte

	// Err, if set, is returned by every operation instead of its normal
	// result, to exercise the RadioError path.
	Err error
}

// New constructs a Mock. txCompleteAt is the elapsed delay (relative to
// StartTransmit) at which CheckTransmit starts returning true. windows are
// consumed in order, one per StartReceive(restart=false) call: the first
// for RX1, the second for RX2.
func New(txCompleteAt time.Duration, windows []Window) *Mock {
	return &Mock{
		txCompleteAt: txCompleteAt,
		windows:      windows,
		windowIndex:  -1,
	}
}

// QueueNonce arranges for a future TryFillBytes call matching len(b) to
// return exactly b, deterministically fixing the DevNonce/channel-noise
// source for a test (spec §8 Scenario A's fixed DevNonce = 0x2A00).
func (m *Mock) QueueNonce(b []byte) {
	cp := make([]byte, len(b))
	copy(cp, b)
	m.nonceQueue = append(m.nonceQueue, cp)
}

// Channels returns every ChannelConfig passed to SetChannel, in order, for
// tests that assert on channel/DR selection.
func (m *Mock) Channels() []radio.ChannelConfig {
	return m.channels
}

// Elapsed returns the total virtual time the mock has been asked to delay,
// for tests that assert on RX window start offsets.
func (m *Mock) Elapsed() time.Duration {
	return m.elapsed
}

func (m *Mock) SetChannel(cfg radio.ChannelConfig) error {
	if m.Err != nil {
		return m.Err
	}
	m.channels = append(m.channels, cfg)
	return nil
}

func (m *Mock) StartTransmit(data []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.txStarted = true
	m.txStartedAt = m.elapsed
	m.lastTxData = append([]byte(nil), data...)
	return nil
}

func (m *Mock) CheckTransmit() (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	if !m.txStarted {
		return false, errors.New("radiotest: CheckTransmit without StartTransmit")
	}
	return m.elapsed-m.txStartedAt >= m.txCompleteAt, nil
}

func (m *Mock) StartReceive(restart bool) error {
	if m.Err != nil {
		return m.Err
	}
	if !restart || !m.windowStarted {
		m.windowIndex++
		m.windowStartAt = m.elapsed
		m.windowStarted = true
	}
	return nil
}

func (m *Mock) currentWindow() (Window, bool) {
	if m.windowIndex < 0 || m.windowIndex >= len(m.windows) {
		return Window{}, false
	}
	return m.windows[m.windowIndex], true
}

func (m *Mock) CheckReceive() (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	w, ok := m.currentWindow()
	if !ok || w.RespondAt <= 0 {
		return false, nil
	}
	return m.elapsed-m.windowStartAt >= w.RespondAt, nil
}

func (m *Mock) GetReceived(buf []byte) (int, radio.Info, error) {
	if m.Err != nil {
		return 0, radio.Info{}, m.Err
	}
	w, ok := m.currentWindow()
	if !ok {
		return 0, radio.Info{}, errors.New("radiotest: GetReceived with no scripted window")
	}
	n := copy(buf, w.Frame)
	return n, w.Info, nil
}

func (m *Mock) IsBusy() (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	w, ok := m.currentWindow()
	if !ok || !w.Busy {
		return false, nil
	}
	return m.elapsed-m.windowStartAt < w.RespondAt, nil
}

func (m *Mock) DelayUs(d time.Duration) {
	m.elapsed += d
}

func (m *Mock) TryFillBytes(buf []byte) error {
	if m.Err != nil {
		return m.Err
	}
	if len(m.nonceQueue) > 0 && len(m.nonceQueue[0]) == len(buf) {
		copy(buf, m.nonceQueue[0])
		m.nonceQueue = m.nonceQueue[1:]
		return nil
	}
	for i := range buf {
		buf[i] = byte(i + 1)
	}
	return nil
}
