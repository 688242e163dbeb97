package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tweedegolf/lorawan-device"
)

func testSession() Session {
	return New(
		lorawan.DevAddr{0x26, 0x0B, 0x12, 0x34},
		lorawan.AES128Key{1},
		lorawan.AES128Key{2},
		DefaultSettings(),
		0,
	)
}

func TestIncrementFCntUp(t *testing.T) {
	s := testSession()
	assert.Equal(t, uint32(0), s.FCntUp)
	s.IncrementFCntUp()
	assert.Equal(t, uint32(1), s.FCntUp)
}

func TestIncrementFCntUpOverflowPanics(t *testing.T) {
	s := testSession()
	s.FCntUp = ^uint32(0)
	assert.Panics(t, func() { s.IncrementFCntUp() })
}

func TestAcceptFCntDownFirstDownlink(t *testing.T) {
	s := testSession()
	got, ok := s.AcceptFCntDown(0)
	assert.True(t, ok)
	assert.Equal(t, uint32(0), got)
	assert.Equal(t, uint32(0), s.FCntDown)
}

func TestAcceptFCntDownMonotonic(t *testing.T) {
	s := testSession()
	_, _ = s.AcceptFCntDown(0)

	got, ok := s.AcceptFCntDown(1)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), got)
}

func TestAcceptFCntDownReplayRejected(t *testing.T) {
	s := testSession()
	_, _ = s.AcceptFCntDown(5)

	_, ok := s.AcceptFCntDown(5)
	assert.False(t, ok)
	assert.Equal(t, uint32(5), s.FCntDown, "replay must not mutate FCntDown")
}

func TestAcceptFCntDownRollover(t *testing.T) {
	s := testSession()
	_, _ = s.AcceptFCntDown(0xFFFF)
	assert.Equal(t, uint32(0xFFFF), s.FCntDown)

	got, ok := s.AcceptFCntDown(0x0000)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x10000), got)
}

func TestAcceptFCntDownOutOfWindowGap(t *testing.T) {
	s := testSession()
	_, _ = s.AcceptFCntDown(0)
	s.FCntDown = 20000

	_, ok := s.AcceptFCntDown(1) // far behind stored, outside the 2^15 window
	assert.False(t, ok)
}

func TestRxDelayWireEncoding(t *testing.T) {
	zero := Settings{RxDelay: 0}
	assert.Equal(t, uint8(1), zero.RxDelaySeconds())

	fifteen := Settings{RxDelay: 15}
	assert.Equal(t, uint8(15), fifteen.RxDelaySeconds())
}

func TestSettingsFromWire(t *testing.T) {
	// DLSettings 0x00, RxDelay 0x01.
	s := SettingsFromWire(0x00, 0x01)
	assert.Equal(t, Settings{RxDelay: 1, Rx1DrOffset: 0, Rx2Dr: 0}, s)
}

func TestQueueMACAnswerCapEnforced(t *testing.T) {
	s := testSession()
	assert.NoError(t, s.QueueMACAnswer(make([]byte, 15)))
	assert.Error(t, s.QueueMACAnswer([]byte{0x01}))
	assert.Len(t, s.PendingMACAnswers(), 15)

	s.ClearPendingMACAnswers()
	assert.Empty(t, s.PendingMACAnswers())
}

func TestHasUsedNonceRing(t *testing.T) {
	c := NewCredentials(lorawan.EUI64{}, lorawan.EUI64{}, lorawan.AES128Key{})
	n := lorawan.DevNonce{0x00, 0x2A}

	assert.False(t, c.HasUsedNonce(n))
	c.RecordNonce(n)
	assert.True(t, c.HasUsedNonce(n))
}

func TestNonceHistoryEviction(t *testing.T) {
	c := NewCredentials(lorawan.EUI64{}, lorawan.EUI64{}, lorawan.AES128Key{})
	first := lorawan.DevNonce{0x00, 0x00}
	c.RecordNonce(first)

	for i := 1; i <= nonceHistorySize; i++ {
		c.RecordNonce(lorawan.DevNonce{byte(i), byte(i >> 8)})
	}

	assert.False(t, c.HasUsedNonce(first), "oldest nonce should have been evicted")
}
