package frame

import (
	"crypto/aes"
	"encoding/binary"

	"github.com/jacobsa/crypto/cmac"
	"github.com/pkg/errors"

	"github.com/tweedegolf/lorawan-device"
)

// direction distinguishes uplink (device to network) from downlink
// (network to device) for the Ai/B0 block construction, spec §4.1.
type direction byte

const (
	dirUplink   direction = 0
	dirDownlink direction = 1
)

// computeMIC implements the B0 || MHDR || FHDR || FPort || encPayload
// CMAC-AES128 truncation from spec §4.1, shared by uplink and downlink
// data-frame MIC calculation (they differ only in which key and
// direction/counter go in).
func computeMIC(key lorawan.AES128Key, dir direction, devAddr lorawan.DevAddr, fcnt uint32, micBytes []byte) (lorawan.MIC, error) {
	var mic lorawan.MIC

	b0 := make([]byte, 16)
	b0[0] = 0x49
	b0[5] = byte(dir)

	addrBytes, err := devAddr.MarshalBinary()
	if err != nil {
		return mic, errors.Wrap(err, "frame: marshal DevAddr for B0")
	}
	copy(b0[6:10], addrBytes)
	binary.LittleEndian.PutUint32(b0[10:14], fcnt)
	b0[15] = byte(len(micBytes))

	hash, err := cmac.New(key[:])
	if err != nil {
		return mic, errors.Wrap(err, "frame: new cmac")
	}
	if _, err := hash.Write(b0); err != nil {
		return mic, errors.Wrap(err, "frame: cmac write B0")
	}
	if _, err := hash.Write(micBytes); err != nil {
		return mic, errors.Wrap(err, "frame: cmac write frame body")
	}

	sum := hash.Sum(nil)
	if len(sum) < 4 {
		return mic, errors.New("frame: cmac returned fewer than 4 bytes")
	}
	copy(mic[:], sum[0:4])
	return mic, nil
}

// computeJoinMIC implements spec §4.1's join-request/join-accept MIC:
// CMAC-AES128(key, micBytes)[0:4].
func computeJoinMIC(key lorawan.AES128Key, micBytes []byte) (lorawan.MIC, error) {
	var mic lorawan.MIC

	hash, err := cmac.New(key[:])
	if err != nil {
		return mic, errors.Wrap(err, "frame: new cmac")
	}
	if _, err := hash.Write(micBytes); err != nil {
		return mic, errors.Wrap(err, "frame: cmac write")
	}

	sum := hash.Sum(nil)
	if len(sum) < 4 {
		return mic, errors.New("frame: cmac returned fewer than 4 bytes")
	}
	copy(mic[:], sum[0:4])
	return mic, nil
}

// cryptPayload implements the AES-128-CTR-style FRMPayload encryption of
// spec §4.1: the counter block Ai for block i (1-indexed) is
// 01 00 00 00 00 Dir DevAddr(4 LE) FCnt(4 LE) 00 i. Since CTR-mode XOR is
// its own inverse, this one function both encrypts and decrypts.
func cryptPayload(key lorawan.AES128Key, dir direction, devAddr lorawan.DevAddr, fcnt uint32, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrap(err, "frame: new AES cipher")
	}

	addrBytes, err := devAddr.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "frame: marshal DevAddr")
	}

	numBlocks := (len(data) + 15) / 16
	out := make([]byte, len(data))

	a := make([]byte, 16)
	s := make([]byte, 16)
	a[0] = 0x01
	a[5] = byte(dir)
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

// deriveSessionKey implements spec §4.1's join-accept key derivation:
// AES(AppKey, typeByte || JoinNonce || HomeNetID || DevNonce || 0x00*7).
func deriveSessionKey(appKey lorawan.AES128Key, typeByte byte, joinNonce lorawan.JoinNonce, homeNetID lorawan.HomeNetID, devNonce lorawan.DevNonce) (lorawan.AES128Key, error) {
	var key lorawan.AES128Key

	block, err := aes.NewCipher(appKey[:])
	if err != nil {
		return key, errors.Wrap(err, "frame: new AES cipher")
	}

	plain := make([]byte, 16)
	plain[0] = typeByte
	copy(plain[1:4], joinNonce[:])
	copy(plain[4:7], homeNetID[:])
	copy(plain[7:9], devNonce[:])
	// remaining 7 bytes are zero padding

	block.Encrypt(key[:], plain)
	return key, nil
}
