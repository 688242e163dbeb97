package frame

import (
	"github.com/tweedegolf/lorawan-device/session"
)

// BuildUplink implements spec §4.1's uplink build: it assembles, encrypts
// and MICs an application uplink frame, and bumps sess.FCntUp on success.
// port must be in 1..=223 (port 0 is reserved for MAC-only uplinks; see
// BuildMACOnlyUplink). Any FOpts queued on sess (spec §4.1 Design Notes,
// the MAC-answer piggyback) are included and cleared on success.
func BuildUplink(sess *session.Session, maxPayload int, payload []byte, port uint8, confirmed bool) ([]byte, error) {
	if port == 0 || port > 223 {
		return nil, newPortError(port)
	}
	if len(payload) > maxPayload {
		return nil, newError(FrameTooLarge)
	}

	mtype := MTypeUnconfirmedDataUp
	if confirmed {
		mtype = MTypeConfirmedDataUp
	}
	mhdr := MHDR{MType: mtype, Major: LoRaWANR1}
	mhdrBytes, err := mhdr.MarshalBinary()
	if err != nil {
		return nil, err
	}

	fOpts := sess.PendingMACAnswers()
	fhdrBytes, err := marshalUplinkFHDR(sess.DevAddr, UplinkFCtrl{ADR: true}, uint16(sess.FCntUp), fOpts)
	if err != nil {
		return nil, err
	}

	encPayload, err := cryptPayload(sess.AppSKey, dirUplink, sess.DevAddr, sess.FCntUp, payload)
	if err != nil {
		return nil, err
	}

	micBytes := make([]byte, 0, len(mhdrBytes)+len(fhdrBytes)+1+len(encPayload))
	micBytes = append(micBytes, mhdrBytes...)
	micBytes = append(micBytes, fhdrBytes...)
	micBytes = append(micBytes, port)
	micBytes = append(micBytes, encPayload...)

	mic, err := computeMIC(sess.NwkSKey, dirUplink, sess.DevAddr, sess.FCntUp, micBytes)
	if err != nil {
		return nil, err
	}

	out := append(micBytes, mic[:]...)

	sess.IncrementFCntUp()
	sess.ClearPendingMACAnswers()

	return out, nil
}

// BuildMACOnlyUplink builds a port-0 uplink carrying MAC commands only,
// used by the device package to flush the pending-FOpts queue when it
// would otherwise overflow spec §4.1's 15 byte FOpts cap ("the engine must
// emit an uplink on port 0 carrying the queued commands before accepting
// further application uplinks").
func BuildMACOnlyUplink(sess *session.Session, macPayload []byte) ([]byte, error) {
	mhdr := MHDR{MType: MTypeUnconfirmedDataUp, Major: LoRaWANR1}
	mhdrBytes, err := mhdr.MarshalBinary()
	if err != nil {
		return nil, err
	}

	fhdrBytes, err := marshalUplinkFHDR(sess.DevAddr, UplinkFCtrl{ADR: true}, uint16(sess.FCntUp), nil)
	if err != nil {
		return nil, err
	}

	encPayload, err := cryptPayload(sess.NwkSKey, dirUplink, sess.DevAddr, sess.FCntUp, macPayload)
	if err != nil {
		return nil, err
	}

	micBytes := make([]byte, 0, len(mhdrBytes)+len(fhdrBytes)+1+len(encPayload))
	micBytes = append(micBytes, mhdrBytes...)
	micBytes = append(micBytes, fhdrBytes...)
	micBytes = append(micBytes, 0x00)
	micBytes = append(micBytes, encPayload...)

	mic, err := computeMIC(sess.NwkSKey, dirUplink, sess.DevAddr, sess.FCntUp, micBytes)
	if err != nil {
		return nil, err
	}

	out := append(micBytes, mic[:]...)

	sess.IncrementFCntUp()
	sess.ClearPendingMACAnswers()

	return out, nil
}
