package frame

import (
	"encoding/binary"

	"github.com/tweedegolf/lorawan-device"
)

// UplinkFCtrl bits, per spec §3: ADR | ADRACKReq | ACK | ClassB | FOptsLen(4).
type UplinkFCtrl struct {
	ADR       bool
	ADRAckReq bool
	ACK       bool
	ClassB    bool
	FOptsLen  uint8
}

// MarshalBinary packs the uplink FCtrl byte.
func (c UplinkFCtrl) MarshalBinary() (byte, error) {
	if c.FOptsLen > 15 {
		return 0, newError(MalformedFrame)
	}
	var b byte
	if c.ADR {
		b |= 1 << 7
	}
	if c.ADRAckReq {
		b |= 1 << 6
	}
	if c.ACK {
		b |= 1 << 5
	}
	if c.ClassB {
		b |= 1 << 4
	}
	b |= c.FOptsLen & 0x0F
	return b, nil
}

// DownlinkFCtrl bits, per spec §3: ADR | RFU | ACK | FPending | FOptsLen(4).
type DownlinkFCtrl struct {
	ADR      bool
	ACK      bool
	FPending bool
	FOptsLen uint8
}

func unmarshalDownlinkFCtrl(b byte) DownlinkFCtrl {
	return DownlinkFCtrl{
		ADR:      b&(1<<7) != 0,
		ACK:      b&(1<<5) != 0,
		FPending: b&(1<<4) != 0,
		FOptsLen: b & 0x0F,
	}
}

// FHDR is the frame header common to uplink and downlink data frames
// (spec §3): DevAddr(4, LE) || FCtrl(1) || FCnt(2, LE) || FOpts(0..15).
type FHDR struct {
	DevAddr lorawan.DevAddr
	FCnt    uint16
	FOpts   []byte
}

// marshalUplinkFHDR builds the wire bytes for an uplink FHDR.
func marshalUplinkFHDR(devAddr lorawan.DevAddr, fctrl UplinkFCtrl, fcnt uint16, fOpts []byte) ([]byte, error) {
	fctrl.FOptsLen = uint8(len(fOpts))
	fctrlByte, err := fctrl.MarshalBinary()
	if err != nil {
		return nil, err
	}

	addrBytes, err := devAddr.MarshalBinary()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 7+len(fOpts))
	out = append(out, addrBytes...)
	out = append(out, fctrlByte)
	out = binary.LittleEndian.AppendUint16(out, fcnt)
	out = append(out, fOpts...)
	return out, nil
}

// unmarshalDownlinkFHDR parses a downlink FHDR from the front of data and
// returns the header plus the number of bytes consumed.
func unmarshalDownlinkFHDR(data []byte) (FHDR, DownlinkFCtrl, int, error) {
	if len(data) < 7 {
		return FHDR{}, DownlinkFCtrl{}, 0, newError(MalformedFrame)
	}
	var devAddr lorawan.DevAddr
	if err := devAddr.UnmarshalBinary(data[0:4]); err != nil {
		return FHDR{}, DownlinkFCtrl{}, 0, newErrorf(MalformedFrame, err)
	}
	fctrl := unmarshalDownlinkFCtrl(data[4])
	fcnt := binary.LittleEndian.Uint16(data[5:7])

	consumed := 7 + int(fctrl.FOptsLen)
	if len(data) < consumed {
		return FHDR{}, DownlinkFCtrl{}, 0, newError(MalformedFrame)
	}
	fOpts := data[7:consumed]

	return FHDR{DevAddr: devAddr, FCnt: fcnt, FOpts: fOpts}, fctrl, consumed, nil
}
