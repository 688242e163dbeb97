package device_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tweedegolf/lorawan-device"
	"github.com/tweedegolf/lorawan-device/device"
	"github.com/tweedegolf/lorawan-device/frame/frametest"
	"github.com/tweedegolf/lorawan-device/radio/radiotest"
	"github.com/tweedegolf/lorawan-device/region"
	"github.com/tweedegolf/lorawan-device/session"
)

func scenarioACredentials() session.Credentials {
	return session.NewCredentials(
		lorawan.EUI64{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07},
		lorawan.EUI64{0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F},
		lorawan.AES128Key{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
	)
}

// TestJoinSucceedsOnRx1 is spec §8 Scenario A extended through device.Join:
// a JoinAccept received on the first receive window produces a
// JoinedDevice with the derived session keys and DevAddr.
func TestJoinSucceedsOnRx1(t *testing.T) {
	creds := scenarioACredentials()
	nonce := lorawan.DevNonce{0x00, 0x2A}

	joinNonce := lorawan.JoinNonce{0xEF, 0xCD, 0xAB}
	homeNetID := lorawan.HomeNetID{0x13, 0x00, 0x00}
	devAddr := lorawan.DevAddr{0x26, 0x0B, 0x12, 0x34}
	accept, err := frametest.BuildJoinAccept(creds.AppKey, joinNonce, homeNetID, devAddr, 0x00, 0x01)
	assert.NoError(t, err)

	mock := radiotest.New(10*time.Millisecond, []radiotest.Window{
		{RespondAt: 20 * time.Millisecond, Frame: accept},
	})
	mock.QueueNonce([]byte{0x00}) // join-channel noise byte, value irrelevant
	mock.QueueNonce(nonce[:])

	u, err := device.NewOTAA(mock, creds, region.EU868, device.Config{})
	assert.NoError(t, err)

	joined, jerr := u.Join()
	assert.Nil(t, jerr)
	if assert.NotNil(t, joined) {
		sess := joined.Session()
		assert.Equal(t, devAddr, sess.DevAddr)
		assert.Equal(t, uint8(1), sess.Settings.RxDelay)
	}
}

// TestJoinSucceedsOnRx2 exercises the RX1-timeout, RX2-answers path of the
// same join exchange.
func TestJoinSucceedsOnRx2(t *testing.T) {
	creds := scenarioACredentials()
	nonce := lorawan.DevNonce{0x00, 0x2A}

	joinNonce := lorawan.JoinNonce{0x01, 0x02, 0x03}
	homeNetID := lorawan.HomeNetID{0x04, 0x05, 0x06}
	devAddr := lorawan.DevAddr{0x07, 0x08, 0x09, 0x0A}
	accept, err := frametest.BuildJoinAccept(creds.AppKey, joinNonce, homeNetID, devAddr, 0x00, 0x01)
	assert.NoError(t, err)

	mock := radiotest.New(10*time.Millisecond, []radiotest.Window{
		{},
		{RespondAt: 20 * time.Millisecond, Frame: accept},
	})
	mock.QueueNonce([]byte{0x00}) // join-channel noise byte, value irrelevant
	mock.QueueNonce(nonce[:])

	u, err := device.NewOTAA(mock, creds, region.EU868, device.Config{})
	assert.NoError(t, err)

	joined, jerr := u.Join()
	assert.Nil(t, jerr)
	assert.NotNil(t, joined)
}

// TestJoinTimesOutOnBothWindows is spec §9's JoinError redesign: on a
// double timeout the caller gets back the original Credentials, not the
// whole (now-discarded) device, so it can retry the join unmodified.
func TestJoinTimesOutOnBothWindows(t *testing.T) {
	creds := scenarioACredentials()
	mock := radiotest.New(10*time.Millisecond, []radiotest.Window{
		{},
		{},
	})

	u, err := device.NewOTAA(mock, creds, region.EU868, device.Config{})
	assert.NoError(t, err)

	joined, jerr := u.Join()
	assert.Nil(t, joined)
	if assert.NotNil(t, jerr) {
		assert.True(t, jerr.TimedOut)
		assert.Equal(t, creds.DevEUI, jerr.Credentials.DevEUI)
	}
}

// TestJoinRejectsTamperedAccept confirms a JoinAccept that fails MIC
// verification surfaces as a Frame error on JoinError, not a crash or a
// silently-accepted join.
func TestJoinRejectsTamperedAccept(t *testing.T) {
	creds := scenarioACredentials()
	nonce := lorawan.DevNonce{0x00, 0x2A}
	accept, err := frametest.BuildJoinAccept(creds.AppKey, lorawan.JoinNonce{1, 2, 3}, lorawan.HomeNetID{4, 5, 6}, lorawan.DevAddr{7, 8, 9, 10}, 0x00, 0x01)
	assert.NoError(t, err)
	accept[1] ^= 0xFF

	mock := radiotest.New(10*time.Millisecond, []radiotest.Window{
		{RespondAt: 20 * time.Millisecond, Frame: accept},
	})
	mock.QueueNonce([]byte{0x00}) // join-channel noise byte, value irrelevant
	mock.QueueNonce(nonce[:])

	u, err := device.NewOTAA(mock, creds, region.EU868, device.Config{})
	assert.NoError(t, err)

	joined, jerr := u.Join()
	assert.Nil(t, joined)
	if assert.NotNil(t, jerr) {
		assert.NotNil(t, jerr.Frame)
	}
}
