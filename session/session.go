package session

import (
	"fmt"

	"github.com/tweedegolf/lorawan-device"
)

// fcntRolloverWindow bounds the frame-counter reconstruction in
// AcceptFCntDown, per spec §4.1's "Frame-counter rollover rule": the
// smallest 32 bit value >= stored FCntDown whose low 16 bits match the
// wire value, within a window of 2^15.
const fcntRolloverWindow = 1 << 15

// maxFOptsBytes is the cap on queued MAC-command answers (spec §4.1 Design
// Notes: "capped at 15 bytes of FOpts").
const maxFOptsBytes = 15

// Settings holds the negotiated, network-mutable radio parameters (spec
// §3). The zero value is not valid; use DefaultSettings.
type Settings struct {
	RxDelay     uint8 // 1..15 seconds; wire value 0 means 1 (see RxDelaySeconds)
	Rx1DrOffset uint8 // 0..7
	Rx2Dr       uint8 // 0..15
}

// DefaultSettings returns the spec §3 default: {1s, 0, 0}.
func DefaultSettings() Settings {
	return Settings{RxDelay: 1, Rx1DrOffset: 0, Rx2Dr: 0}
}

// RxDelaySeconds applies the "wire 0 means 1s" encoding quirk spec §3
// calls out as normative.
func (s Settings) RxDelaySeconds() uint8 {
	if s.RxDelay == 0 {
		return 1
	}
	return s.RxDelay
}

// SettingsFromWire decodes RxDelay/DLSettings nibbles as carried in a
// JoinAccept (spec §3/§4.1): RxDelay is the low nibble of the wire byte,
// Rx1DrOffset/Rx2Dr split DLSettings into two nibbles.
func SettingsFromWire(dlSettings, rxDelay byte) Settings {
	return Settings{
		RxDelay:     rxDelay & 0x0F,
		Rx1DrOffset: (dlSettings >> 4) & 0x07,
		Rx2Dr:       dlSettings & 0x0F,
	}
}

// Session is the post-join state a Class-A device carries for its
// operational life (spec §3). Its fields are exported for persistence;
// the methods below are the mutators the MAC engine uses, and only
// IncrementFCntUp checks an invariant (see the package doc).
type Session struct {
	DevAddr  lorawan.DevAddr
	NwkSKey  lorawan.AES128Key
	AppSKey  lorawan.AES128Key
	FCntUp   uint32
	FCntDown uint32

	ADRAckCnt uint32
	TxDr      uint8

	Settings Settings

	downlinkReceived bool
	pendingFOpts     []byte
}

// New constructs a Session from the outcome of a join, per spec §3's
// "Lifetimes" note: a Credentials value is consumed by join() producing a
// Session.
func New(devAddr lorawan.DevAddr, nwkSKey, appSKey lorawan.AES128Key, settings Settings, initialDR uint8) Session {
	return Session{
		DevAddr:  devAddr,
		NwkSKey:  nwkSKey,
		AppSKey:  appSKey,
		Settings: settings,
		TxDr:     initialDR,
	}
}

// IncrementFCntUp bumps FCntUp. Spec §3: "increment only after a
// successful frame build"; §5 additionally requires this happen before TX
// is released, so a crash mid-TX still burns the counter rather than risk
// reuse.
func (s *Session) IncrementFCntUp() {
	if s.FCntUp == ^uint32(0) {
		panic("session: FCntUp would overflow uint32")
	}
	s.FCntUp++
}

// CandidateFCntDown reconstructs the full 32 bit downlink counter from its
// 16 bit wire value and the rollover/replay rule, without mutating the
// session. Callers must verify the frame's MIC against the returned
// candidate before calling CommitFCntDown, per spec §4.1 step 2 / §7's
// "MIC failures never mutate FCntDown". ok is false when no candidate
// within the rollover window is found.
//
// The very first downlink a fresh session ever receives is accepted
// unconditionally at whatever counter value it carries (including 0, which
// is indistinguishable on the wire from "replay of an unseen counter");
// every later downlink must carry a strictly greater counter.
func (s *Session) CandidateFCntDown(wireFCnt uint16) (uint32, bool) {
	if !s.downlinkReceived {
		return uint32(wireFCnt), true
	}

	candidate, ok := reconstructFCnt(s.FCntDown, wireFCnt)
	if !ok || candidate <= s.FCntDown {
		return 0, false
	}
	return candidate, true
}

// CommitFCntDown stores a candidate counter produced by CandidateFCntDown,
// once its MIC has verified.
func (s *Session) CommitFCntDown(candidate uint32) {
	s.FCntDown = candidate
	s.downlinkReceived = true
}

// AcceptFCntDown combines CandidateFCntDown and CommitFCntDown for callers
// that don't need to verify a MIC in between (e.g. tests).
func (s *Session) AcceptFCntDown(wireFCnt uint16) (uint32, bool) {
	candidate, ok := s.CandidateFCntDown(wireFCnt)
	if !ok {
		return 0, false
	}
	s.CommitFCntDown(candidate)
	return candidate, true
}

// reconstructFCnt finds the smallest 32 bit value >= stored whose low 16
// bits equal wire, within fcntRolloverWindow, per spec §4.1.
func reconstructFCnt(stored uint32, wire uint16) (uint32, bool) {
	storedLow := uint16(stored)
	diff := uint32(wire) - uint32(storedLow)
	// diff is computed modulo 2^16; normalize into [0, 2^16).
	diff &= 0xFFFF

	if diff > fcntRolloverWindow {
		// wire is "behind" stored by less than a window's worth measured
		// the other way around: outside the accepted window, treat as a
		// replay or an out-of-window gap.
		return 0, false
	}
	return stored + diff, true
}

// ApplySettings overwrites the negotiated settings, as the result of a
// RXParamSetupReq/RXTimingSetupReq MAC command (spec §4.1's recognized
// downlink MAC commands table).
func (s *Session) ApplySettings(settings Settings) {
	s.Settings = settings
}

// SetTxDR applies a new transmit data-rate, as the result of a LinkADRReq.
// dr must be in range for the region in use; the caller (device package,
// which knows the region) is responsible for that check — this method
// only stores the value, matching spec §4.2's "Pure data with small
// mutators" description.
func (s *Session) SetTxDR(dr uint8) {
	s.TxDr = dr
}

// QueueMACAnswer appends an encoded MAC-command answer to the pending
// FOpts queue, enforcing the 15 byte cap from spec §4.1's Design Notes. It
// returns an error (without mutating the queue) if appending would
// overflow the cap; the device package is responsible for flushing the
// queue via a port-0 uplink when that happens.
func (s *Session) QueueMACAnswer(encoded []byte) error {
	if len(s.pendingFOpts)+len(encoded) > maxFOptsBytes {
		return fmt.Errorf("session: pending FOpts would exceed %d bytes", maxFOptsBytes)
	}
	s.pendingFOpts = append(s.pendingFOpts, encoded...)
	return nil
}

// PendingMACAnswers returns the queued FOpts bytes to piggyback on the
// next uplink.
func (s Session) PendingMACAnswers() []byte {
	return s.pendingFOpts
}

// ClearPendingMACAnswers empties the queue once its contents have been
// placed on the wire.
func (s *Session) ClearPendingMACAnswers() {
	s.pendingFOpts = nil
}
