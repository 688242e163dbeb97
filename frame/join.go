package frame

import (
	"crypto/aes"

	"github.com/pkg/errors"

	"github.com/tweedegolf/lorawan-device"
	"github.com/tweedegolf/lorawan-device/session"
)

// CFList is the optional list of five extra channel frequencies a
// JoinAccept may carry (spec §4.1's join-accept fields). Region channel
// plans beyond EU868's fixed three are out of scope (spec Non-goals), so
// the device engine discards it without applying or logging it; it is
// still parsed so a caller inspecting a JoinAcceptResult can see it.
type CFList [16]byte

// JoinAcceptResult is everything ParseJoinAccept extracts from a verified
// JoinAccept, per spec §4.1's join flow.
type JoinAcceptResult struct {
	JoinNonce lorawan.JoinNonce
	HomeNetID lorawan.HomeNetID
	DevAddr   lorawan.DevAddr
	Settings  session.Settings
	CFList    *CFList // nil when absent
	NwkSKey   lorawan.AES128Key
	AppSKey   lorawan.AES128Key
}

// BuildJoinRequest implements spec §4.1's join-request build: MHDR ||
// JoinEUI || DevEUI || DevNonce || MIC, 23 bytes total. nonce must not have
// been used before; the caller (device package) is responsible for
// checking creds.HasUsedNonce and recording it via creds.RecordNonce once
// the request is sent.
func BuildJoinRequest(creds *session.Credentials, nonce lorawan.DevNonce) ([]byte, error) {
	mhdr := MHDR{MType: MTypeJoinRequest, Major: LoRaWANR1}
	mhdrBytes, err := mhdr.MarshalBinary()
	if err != nil {
		return nil, err
	}

	joinEUIBytes, err := creds.JoinEUI.MarshalBinary()
	if err != nil {
		return nil, err
	}
	devEUIBytes, err := creds.DevEUI.MarshalBinary()
	if err != nil {
		return nil, err
	}
	nonceBytes, err := nonce.MarshalBinary()
	if err != nil {
		return nil, err
	}

	micBytes := make([]byte, 0, 1+8+8+2)
	micBytes = append(micBytes, mhdrBytes...)
	micBytes = append(micBytes, joinEUIBytes...)
	micBytes = append(micBytes, devEUIBytes...)
	micBytes = append(micBytes, nonceBytes...)

	mic, err := computeJoinMIC(creds.AppKey, micBytes)
	if err != nil {
		return nil, err
	}

	return append(micBytes, mic[:]...), nil
}

// ParseJoinAccept implements spec §4.1's join-accept parse: decrypt,
// verify MIC, derive NwkSKey/AppSKey. nonce must be the DevNonce used in
// the matching join request, since it feeds the session-key derivation.
func ParseJoinAccept(creds *session.Credentials, nonce lorawan.DevNonce, raw []byte) (*JoinAcceptResult, error) {
	if len(raw) != 1+16 && len(raw) != 1+32 {
		return nil, newError(MalformedFrame)
	}

	var mhdr MHDR
	if err := mhdr.UnmarshalBinary(raw[0:1]); err != nil {
		return nil, err
	}
	if mhdr.MType != MTypeJoinAccept {
		return nil, newError(MalformedFrame)
	}

	plain, err := decryptJoinAccept(creds.AppKey, raw[1:])
	if err != nil {
		return nil, newErrorf(MalformedFrame, err)
	}

	// plain is JoinNonce(3) || HomeNetID(3) || DevAddr(4) || DLSettings(1)
	// || RxDelay(1) || CFList(0 or 16) || MIC(4).
	body := plain[:len(plain)-4]
	mic := plain[len(plain)-4:]

	micBytes := make([]byte, 0, len(raw[0:1])+len(body))
	micBytes = append(micBytes, raw[0:1]...)
	micBytes = append(micBytes, body...)

	expectedMIC, err := computeJoinMIC(creds.AppKey, micBytes)
	if err != nil {
		return nil, err
	}
	if !bytesEqual(expectedMIC[:], mic) {
		return nil, newError(MICMismatch)
	}

	var joinNonce lorawan.JoinNonce
	if err := joinNonce.UnmarshalBinary(body[0:3]); err != nil {
		return nil, newErrorf(MalformedFrame, err)
	}
	var homeNetID lorawan.HomeNetID
	if err := homeNetID.UnmarshalBinary(body[3:6]); err != nil {
		return nil, newErrorf(MalformedFrame, err)
	}
	var devAddr lorawan.DevAddr
	if err := devAddr.UnmarshalBinary(body[6:10]); err != nil {
		return nil, newErrorf(MalformedFrame, err)
	}
	dlSettings := body[10]
	rxDelay := body[11]
	settings := session.SettingsFromWire(dlSettings, rxDelay)

	var cfList *CFList
	if len(body) == 12+16 {
		var l CFList
		copy(l[:], body[12:28])
		cfList = &l
	}

	nwkSKey, err := deriveSessionKey(creds.AppKey, 0x01, joinNonce, homeNetID, nonce)
	if err != nil {
		return nil, err
	}
	appSKey, err := deriveSessionKey(creds.AppKey, 0x02, joinNonce, homeNetID, nonce)
	if err != nil {
		return nil, err
	}

	return &JoinAcceptResult{
		JoinNonce: joinNonce,
		HomeNetID: homeNetID,
		DevAddr:   devAddr,
		Settings:  settings,
		CFList:    cfList,
		NwkSKey:   nwkSKey,
		AppSKey:   appSKey,
	}, nil
}

// decryptJoinAccept reverses the network server's join-accept encryption:
// the server "encrypts" with the AES decrypt operation on each 16 byte
// block independently (ECB, no chaining), so the device recovers
// plaintext by AES-encrypting each block independently in turn (spec
// §4.1).
func decryptJoinAccept(key lorawan.AES128Key, ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%16 != 0 {
		return nil, errors.New("frame: join-accept ciphertext is not block aligned")
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrap(err, "frame: new AES cipher")
	}
	plain := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += 16 {
		block.Encrypt(plain[i:i+16], ciphertext[i:i+16])
	}
	return plain, nil
}
