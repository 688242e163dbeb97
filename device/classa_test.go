package device_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tweedegolf/lorawan-device"
	"github.com/tweedegolf/lorawan-device/device"
	"github.com/tweedegolf/lorawan-device/frame/frametest"
	"github.com/tweedegolf/lorawan-device/radio"
	"github.com/tweedegolf/lorawan-device/radio/radiotest"
	"github.com/tweedegolf/lorawan-device/region"
	"github.com/tweedegolf/lorawan-device/session"
)

func testSession() session.Session {
	return session.New(
		lorawan.DevAddr{0x26, 0x0B, 0x12, 0x34},
		lorawan.AES128Key{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		lorawan.AES128Key{16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
		session.DefaultSettings(),
		0,
	)
}

func newJoinedDevice(t *testing.T, mock radio.Port) (*device.JoinedDevice, session.Session) {
	t.Helper()
	sess := testSession()
	d, err := device.NewABP(mock, sess, region.EU868, device.Config{})
	assert.NoError(t, err)
	return d, sess
}

// TestUplinkNoDownlink is spec §8 Scenario B: an uplink with neither RX1
// nor RX2 yielding a frame returns (nil, nil).
func TestUplinkNoDownlink(t *testing.T) {
	mock := radiotest.New(10*time.Millisecond, []radiotest.Window{
		{}, // RX1 times out
		{}, // RX2 times out
	})
	d, _ := newJoinedDevice(t, mock)

	dl, derr := d.ClassA().Uplink([]byte("hi"), 1, false)
	assert.Nil(t, derr)
	assert.Nil(t, dl)
}

// TestUplinkRx1Response is spec §8 Scenario C: a downlink answered within
// RX1 is decoded and returned.
func TestUplinkRx1Response(t *testing.T) {
	sess := testSession()
	down, err := frametest.BuildDownlink(sess, 0, 5, []byte("pong"))
	assert.NoError(t, err)

	mock := radiotest.New(10*time.Millisecond, []radiotest.Window{
		{RespondAt: 20 * time.Millisecond, Frame: down, Info: radio.Info{RSSI: -80, SNR: 5}},
	})
	d, _ := newJoinedDevice(t, mock)

	dl, derr := d.ClassA().Uplink([]byte("ping"), 1, false)
	assert.Nil(t, derr)
	if assert.NotNil(t, dl) {
		assert.Equal(t, uint8(5), dl.Port)
		assert.Equal(t, []byte("pong"), dl.Bytes)
	}
}

// TestUplinkRx2Response is spec §8 Scenario D: RX1 times out, RX2 answers.
func TestUplinkRx2Response(t *testing.T) {
	sess := testSession()
	down, err := frametest.BuildDownlink(sess, 0, 7, []byte("late"))
	assert.NoError(t, err)

	mock := radiotest.New(10*time.Millisecond, []radiotest.Window{
		{}, // RX1 times out
		{RespondAt: 20 * time.Millisecond, Frame: down, Info: radio.Info{SNR: -3}}, // RX2 answers
	})
	d, _ := newJoinedDevice(t, mock)

	dl, derr := d.ClassA().Uplink([]byte("ping"), 1, false)
	assert.Nil(t, derr)
	if assert.NotNil(t, dl) {
		assert.Equal(t, uint8(7), dl.Port)
		assert.Equal(t, []byte("late"), dl.Bytes)
	}
}

// TestUplinkReplayedDownlinkDropped is spec §8 Scenario E: a downlink
// whose FCnt the session has already seen is silently dropped, same as no
// downlink at all.
func TestUplinkReplayedDownlinkDropped(t *testing.T) {
	sess := testSession()
	down, err := frametest.BuildDownlink(sess, 0, 5, []byte("first"))
	assert.NoError(t, err)

	mock := radiotest.New(10*time.Millisecond, []radiotest.Window{
		{RespondAt: 20 * time.Millisecond, Frame: down},
	})
	d, _ := newJoinedDevice(t, mock)

	dl, derr := d.ClassA().Uplink([]byte("ping"), 1, false)
	assert.Nil(t, derr)
	assert.NotNil(t, dl)

	// Replay the same downlink (the session has already accepted FCnt 0)
	// on a fresh exchange.
	mock2 := radiotest.New(10*time.Millisecond, []radiotest.Window{
		{RespondAt: 20 * time.Millisecond, Frame: down},
		{},
	})
	d2, err := device.NewABP(mock2, d.Session(), region.EU868, device.Config{})
	assert.NoError(t, err)

	dl2, derr2 := d2.ClassA().Uplink([]byte("ping"), 1, false)
	assert.Nil(t, derr2)
	assert.Nil(t, dl2, "a replayed FCntDown is dropped like a missing downlink")
}

// TestUplinkOversizePayloadRejected is spec §8 Scenario F: a payload over
// the data rate's max size is rejected before anything is transmitted.
func TestUplinkOversizePayloadRejected(t *testing.T) {
	mock := radiotest.New(10*time.Millisecond, nil)
	d, _ := newJoinedDevice(t, mock)

	oversized := make([]byte, 52) // DR0 max payload is 51 (region/eu868.go)
	_, derr := d.ClassA().Uplink(oversized, 1, false)
	if assert.NotNil(t, derr) {
		assert.NotNil(t, derr.Frame)
	}
	assert.Empty(t, mock.Channels(), "rejected before any radio interaction")
}

func TestMaxPayload(t *testing.T) {
	mock := radiotest.New(10*time.Millisecond, nil)
	d, _ := newJoinedDevice(t, mock)
	n, err := d.ClassA().MaxPayload()
	assert.NoError(t, err)
	assert.Equal(t, 51, n)
}
