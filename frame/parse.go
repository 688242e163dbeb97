package frame

import (
	"github.com/tweedegolf/lorawan-device/mac"
	"github.com/tweedegolf/lorawan-device/session"
)

// Downlink is the result of a successfully parsed downlink data frame
// (spec §4.1's dispatch-by-FPort outcomes).
type Downlink struct {
	AckOnly  bool   // FPort absent: acknowledgement only
	Port     uint8  // valid when !AckOnly
	Bytes    []byte // application payload (FPort 1..223) or raw test bytes (224)
	TestPort bool   // FPort == 224
	MACOnly  bool   // FPort == 0: MAC commands only, already applied
	FPending bool   // gateway has more data queued (downlink FCtrl bit)
}

// ParseDownlink implements spec §4.1's downlink parse: MIC verification
// against a reconstructed frame counter, decryption, and dispatch by
// FPort. Every frame error, MICMismatch and ReplayOrGap included, is
// returned to the caller; per spec §7 the device package turns them into a
// silently dropped frame (Ok(None)) and traces ReplayOrGap.
//
// sess is mutated (FCntDown, Settings, pending MAC answers) only once the
// MIC has verified, per spec §7: "MIC failures never mutate FCntDown".
func ParseDownlink(sess *session.Session, raw []byte) (*Downlink, error) {
	if len(raw) < 12 {
		return nil, newError(MalformedFrame)
	}

	mic := raw[len(raw)-4:]
	body := raw[:len(raw)-4]

	var mhdr MHDR
	if err := mhdr.UnmarshalBinary(body[0:1]); err != nil {
		return nil, err
	}
	fhdr, fctrl, consumed, err := unmarshalDownlinkFHDR(body[1:])
	if err != nil {
		return nil, err
	}
	if fhdr.DevAddr != sess.DevAddr {
		return nil, newError(MalformedFrame)
	}

	rest := body[1+consumed:]

	candidate, ok := sess.CandidateFCntDown(fhdr.FCnt)
	if !ok {
		return nil, newError(ReplayOrGap)
	}

	expectedMIC, err := computeMIC(sess.NwkSKey, dirDownlink, sess.DevAddr, candidate, body)
	if err != nil {
		return nil, err
	}
	if !bytesEqual(expectedMIC[:], mic) {
		return nil, newError(MICMismatch)
	}
	if mhdr.MType != MTypeUnconfirmedDataDown && mhdr.MType != MTypeConfirmedDataDown {
		return nil, newError(MalformedFrame)
	}

	sess.CommitFCntDown(candidate)

	if len(rest) == 0 {
		return &Downlink{AckOnly: true, FPending: fctrl.FPending}, nil
	}

	port := rest[0]
	encPayload := rest[1:]

	switch {
	case port == 0:
		decrypted, err := cryptPayload(sess.NwkSKey, dirDownlink, sess.DevAddr, candidate, encPayload)
		if err != nil {
			return nil, err
		}
		if err := applyMACCommands(sess, decrypted); err != nil {
			return nil, err
		}
		return &Downlink{Port: 0, MACOnly: true, FPending: fctrl.FPending}, nil

	case port <= 223:
		decrypted, err := cryptPayload(sess.AppSKey, dirDownlink, sess.DevAddr, candidate, encPayload)
		if err != nil {
			return nil, err
		}
		return &Downlink{Port: port, Bytes: decrypted, FPending: fctrl.FPending}, nil

	case port == 224:
		decrypted, err := cryptPayload(sess.AppSKey, dirDownlink, sess.DevAddr, candidate, encPayload)
		if err != nil {
			return nil, err
		}
		return &Downlink{Port: port, Bytes: decrypted, TestPort: true, FPending: fctrl.FPending}, nil

	default:
		return nil, newPortError(port)
	}
}

func applyMACCommands(sess *session.Session, data []byte) error {
	cmds, err := mac.Decode(data)
	if err != nil {
		return newErrorf(UnsupportedMAC, err)
	}

	current := mac.Settings{
		Rx1DrOffset: sess.Settings.Rx1DrOffset,
		Rx2Dr:       sess.Settings.Rx2Dr,
		RxDelay:     sess.Settings.RxDelay,
		TxDr:        sess.TxDr,
	}

	for _, cmd := range cmds {
		result, err := mac.Apply(cmd, current)
		if err != nil {
			return newErrorf(UnsupportedMAC, err)
		}
		current = result.Settings
		if result.Answer != nil {
			if err := sess.QueueMACAnswer(result.Answer); err != nil {
				return newErrorf(FOptsOverflow, err)
			}
		}
	}

	sess.ApplySettings(session.Settings{
		RxDelay:     current.RxDelay,
		Rx1DrOffset: current.Rx1DrOffset,
		Rx2Dr:       current.Rx2Dr,
	})
	sess.SetTxDR(current.TxDr)
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
