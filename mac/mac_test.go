package mac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeSingleCommand(t *testing.T) {
	data := []byte{byte(RXTimingSetupReq), 0x03}
	cmds, err := Decode(data)
	assert.NoError(t, err)
	assert.Len(t, cmds, 1)
	assert.Equal(t, RXTimingSetupReq, cmds[0].CID)
	assert.Equal(t, []byte{0x03}, cmds[0].Payload)
}

func TestDecodeMultipleCommands(t *testing.T) {
	data := []byte{
		byte(DutyCycleReq), 0x01,
		byte(LinkCheckAns), 0x14, 0x02, // margin=20, gwCnt=2
	}
	cmds, err := Decode(data)
	assert.NoError(t, err)
	assert.Len(t, cmds, 2)
	assert.Equal(t, DutyCycleReq, cmds[0].CID)
	assert.Equal(t, LinkCheckAns, cmds[1].CID)
	assert.Equal(t, []byte{0x14, 0x02}, cmds[1].Payload)
}

func TestDecodeUnsupportedCID(t *testing.T) {
	_, err := Decode([]byte{0x7F})
	assert.Error(t, err)
}

func TestDecodeTruncatedPayload(t *testing.T) {
	_, err := Decode([]byte{byte(NewChannelReq), 0x01})
	assert.Error(t, err)
}

func TestApplyLinkADRReq(t *testing.T) {
	cmd := Command{CID: LinkADRReq, Payload: []byte{0x50, 0x00, 0x00, 0x00}} // DR=5
	result, err := Apply(cmd, Settings{})
	assert.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, uint8(5), result.Settings.TxDr)
	assert.Equal(t, []byte{byte(LinkADRAns), 0x07}, result.Answer)
}

func TestApplyRXParamSetupReq(t *testing.T) {
	cmd := Command{CID: RXParamSetupReq, Payload: []byte{0x21, 0x00, 0x00, 0x00}} // offset=2, rx2dr=1
	result, err := Apply(cmd, Settings{})
	assert.NoError(t, err)
	assert.Equal(t, uint8(2), result.Settings.Rx1DrOffset)
	assert.Equal(t, uint8(1), result.Settings.Rx2Dr)
}

func TestApplyRXTimingSetupReq(t *testing.T) {
	cmd := Command{CID: RXTimingSetupReq, Payload: []byte{0x00}} // 0 -> 1s encoding handled by session
	result, err := Apply(cmd, Settings{})
	assert.NoError(t, err)
	assert.Equal(t, uint8(0), result.Settings.RxDelay)
}

func TestApplyDutyCycleReqDoesNotChangeSettings(t *testing.T) {
	cmd := Command{CID: DutyCycleReq, Payload: []byte{0x05}}
	result, err := Apply(cmd, Settings{TxDr: 3})
	assert.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, uint8(3), result.Settings.TxDr)
	assert.Equal(t, []byte{byte(DutyCycleAns)}, result.Answer)
}

func TestApplyLinkCheckAnsConsumedWithoutReply(t *testing.T) {
	cmd := Command{CID: LinkCheckAns, Payload: []byte{0x14, 0x02}}
	result, err := Apply(cmd, Settings{TxDr: 3})
	assert.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Nil(t, result.Answer)
	assert.Equal(t, uint8(3), result.Settings.TxDr)
}

func TestApplyUnknownCIDRejected(t *testing.T) {
	_, err := Apply(Command{CID: CID(0x7F)}, Settings{})
	assert.Error(t, err)
}
