// Package frametest plays the network-server side of the exchanges this
// module drives, for tests that need a downlink or JoinAccept on the wire
// without a real server. It duplicates just enough of spec §4.1's codec
// (CMAC-AES128 MIC, AES-CTR FRMPayload crypto, the join-accept
// encrypt-by-decrypting construction) to build frames the device-side code
// in frame and device can parse.
package frametest

import (
	"crypto/aes"
	"encoding/binary"

	"github.com/jacobsa/crypto/cmac"
	"github.com/pkg/errors"

	"github.com/tweedegolf/lorawan-device"
	"github.com/tweedegolf/lorawan-device/session"
)

const (
	mtypeJoinAccept          = 1
	mtypeUnconfirmedDataDown = 3
	loRaWANR1                = 0

	dirDownlink = 1
)

func computeMIC(key lorawan.AES128Key, devAddr lorawan.DevAddr, fcnt uint32, micBytes []byte) (lorawan.MIC, error) {
	var mic lorawan.MIC

	b0 := make([]byte, 16)
	b0[0] = 0x49
	b0[5] = dirDownlink
	addrBytes, err := devAddr.MarshalBinary()
	if err != nil {
		return mic, errors.Wrap(err, "frametest: marshal DevAddr")
	}
	copy(b0[6:10], addrBytes)
	binary.LittleEndian.PutUint32(b0[10:14], fcnt)
	b0[15] = byte(len(micBytes))

	hash, err := cmac.New(key[:])
	if err != nil {
		return mic, errors.Wrap(err, "frametest: new cmac")
	}
	if _, err := hash.Write(b0); err != nil {
		return mic, err
	}
	if _, err := hash.Write(micBytes); err != nil {
		return mic, err
	}
	sum := hash.Sum(nil)
	copy(mic[:], sum[0:4])
	return mic, nil
}

func computeJoinMIC(key lorawan.AES128Key, micBytes []byte) (lorawan.MIC, error) {
	var mic lorawan.MIC
	hash, err := cmac.New(key[:])
	if err != nil {
		return mic, errors.Wrap(err, "frametest: new cmac")
	}
	if _, err := hash.Write(micBytes); err != nil {
		return mic, err
	}
	sum := hash.Sum(nil)
	copy(mic[:], sum[0:4])
	return mic, nil
}

func cryptPayload(key lorawan.AES128Key, devAddr lorawan.DevAddr, fcnt uint32, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrap(err, "frametest: new AES cipher")
	}
	addrBytes, err := devAddr.MarshalBinary()
	if err != nil {
		return nil, err
	}

	numBlocks := (len(data) + 15) / 16
	out := make([]byte, len(data))
	a := make([]byte, 16)
	s := make([]byte, 16)
	a[0] = 0x01
	a[5] = dirDownlink
	copy(a[6:10], addrBytes)
	binary.LittleEndian.PutUint32(a[10:14], fcnt)

	for i := 1; i <= numBlocks; i++ {
		a[15] = byte(i)
		block.Encrypt(s, a)
		start := (i - 1) * 16
		end := start + 16
		if end > len(data) {
			end = len(data)
		}
		for j := start; j < end; j++ {
			out[j] = data[j] ^ s[j-start]
		}
	}
	return out, nil
}

// BuildDownlink builds a downlink data frame addressed to sess, encrypted
// and MIC'd with sess's keys, ready to hand to a radiotest.Mock Window.
func BuildDownlink(sess session.Session, fcnt uint32, port uint8, payload []byte) ([]byte, error) {
	mhdrByte := byte(mtypeUnconfirmedDataDown<<5) | loRaWANR1

	key := sess.AppSKey
	if port == 0 {
		key = sess.NwkSKey
	}
	encPayload, err := cryptPayload(key, sess.DevAddr, fcnt, payload)
	if err != nil {
		return nil, err
	}

	addrBytes, err := sess.DevAddr.MarshalBinary()
	if err != nil {
		return nil, err
	}

	body := []byte{mhdrByte}
	body = append(body, addrBytes...)
	body = append(body, 0x00) // FCtrl: ADR=0 ACK=0 FPending=0 FOptsLen=0
	body = append(body, byte(fcnt), byte(fcnt>>8))
	body = append(body, port)
	body = append(body, encPayload...)

	mic, err := computeMIC(sess.NwkSKey, sess.DevAddr, fcnt, body)
	if err != nil {
		return nil, err
	}
	return append(body, mic[:]...), nil
}

// BuildJoinAccept builds a JoinAccept encrypted and MIC'd under appKey,
// ready to hand to a radiotest.Mock Window for a device.Join() test. When
// a cfList is given, the first one is appended to the body, producing a
// two-block JoinAccept.
func BuildJoinAccept(appKey lorawan.AES128Key, joinNonce lorawan.JoinNonce, homeNetID lorawan.HomeNetID, devAddr lorawan.DevAddr, dlSettings, rxDelay byte, cfList ...[16]byte) ([]byte, error) {
	mhdrByte := byte(mtypeJoinAccept << 5)

	body := make([]byte, 0, 12+16)
	body = append(body, joinNonce[:]...)
	body = append(body, homeNetID[:]...)
	addrBytes, err := devAddr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	body = append(body, addrBytes...)
	body = append(body, dlSettings, rxDelay)
	if len(cfList) > 0 {
		body = append(body, cfList[0][:]...)
	}

	micBytes := append([]byte{mhdrByte}, body...)
	mic, err := computeJoinMIC(appKey, micBytes)
	if err != nil {
		return nil, err
	}
	plain := append(body, mic[:]...)

	block, err := aes.NewCipher(appKey[:])
	if err != nil {
		return nil, errors.Wrap(err, "frametest: new AES cipher")
	}
	// The server "encrypts" a JoinAccept by AES-decrypting each 16 byte
	// block independently (ECB, no chaining); the device reverses this by
	// AES-encrypting each block in turn.
	ciphertext := make([]byte, len(plain))
	for i := 0; i < len(plain); i += 16 {
		block.Decrypt(ciphertext[i:i+16], plain[i:i+16])
	}

	return append([]byte{mhdrByte}, ciphertext...), nil
}
