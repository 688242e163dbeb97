package lorawan

import (
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
)

// EUI64 represents an 8 byte EUI, used for both the JoinEUI (AppEUI) and the
// DevEUI. Wire order is little-endian, matching §3 of the frame format.
type EUI64 [8]byte

// String implements fmt.Stringer.
func (e EUI64) String() string {
	return hex.EncodeToString(e[:])
}

// MarshalText implements encoding.TextMarshaler.
func (e EUI64) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EUI64) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(b) != len(e) {
		return fmt.Errorf("lorawan: exactly %d bytes are expected", len(e))
	}
	copy(e[:], b)
	return nil
}

// MarshalBinary encodes the EUI in little-endian wire order.
func (e EUI64) MarshalBinary() ([]byte, error) {
	b := make([]byte, len(e))
	for i, v := range e {
		b[len(e)-i-1] = v
	}
	return b, nil
}

// UnmarshalBinary decodes the EUI from little-endian wire order.
func (e *EUI64) UnmarshalBinary(data []byte) error {
	if len(data) != len(e) {
		return fmt.Errorf("lorawan: %d bytes of data are expected", len(e))
	}
	for i, v := range data {
		e[len(e)-i-1] = v
	}
	return nil
}

// Value implements driver.Valuer.
func (e EUI64) Value() (driver.Value, error) {
	return e[:], nil
}

// Scan implements sql.Scanner.
func (e *EUI64) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return errors.New("lorawan: []byte type expected")
	}
	if len(b) != len(e) {
		return fmt.Errorf("lorawan: []byte must have length %d", len(e))
	}
	copy(e[:], b)
	return nil
}

// DevAddr represents the 4 byte device address assigned at join time.
type DevAddr [4]byte

// String implements fmt.Stringer.
func (a DevAddr) String() string {
	return hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a DevAddr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *DevAddr) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(b) != len(a) {
		return fmt.Errorf("lorawan: exactly %d bytes are expected", len(a))
	}
	copy(a[:], b)
	return nil
}

// MarshalBinary encodes the DevAddr in little-endian wire order.
func (a DevAddr) MarshalBinary() ([]byte, error) {
	b := make([]byte, len(a))
	for i, v := range a {
		b[len(a)-i-1] = v
	}
	return b, nil
}

// UnmarshalBinary decodes the DevAddr from little-endian wire order.
func (a *DevAddr) UnmarshalBinary(data []byte) error {
	if len(data) != len(a) {
		return fmt.Errorf("lorawan: %d bytes of data are expected", len(a))
	}
	for i, v := range data {
		a[len(a)-i-1] = v
	}
	return nil
}

// Value implements driver.Valuer.
func (a DevAddr) Value() (driver.Value, error) {
	return a[:], nil
}

// Scan implements sql.Scanner.
func (a *DevAddr) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return errors.New("lorawan: []byte type expected")
	}
	if len(b) != len(a) {
		return fmt.Errorf("lorawan: []byte must have length %d", len(a))
	}
	copy(a[:], b)
	return nil
}

// AES128Key represents a 128 bit AES key: AppKey/NwkKey (root keys) or
// AppSKey/NwkSKey (session keys).
type AES128Key [16]byte

// String implements fmt.Stringer.
func (k AES128Key) String() string {
	return hex.EncodeToString(k[:])
}

// MarshalText implements encoding.TextMarshaler.
//
// The key is written as plaintext hex. Credentials and Session expose
// their keys as exported fields, so encoding/json renders a Credentials or
// Session value with its keys in plaintext through this method (as
// cmd/devicesim does when it persists a Session).
func (k AES128Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AES128Key) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(b) != len(k) {
		return fmt.Errorf("lorawan: exactly %d bytes are expected", len(k))
	}
	copy(k[:], b)
	return nil
}

// Value implements driver.Valuer.
func (k AES128Key) Value() (driver.Value, error) {
	return k[:], nil
}

// Scan implements sql.Scanner.
func (k *AES128Key) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return errors.New("lorawan: []byte type expected")
	}
	if len(b) != len(k) {
		return fmt.Errorf("lorawan []byte must have length %d", len(k))
	}
	copy(k[:], b)
	return nil
}

// DevNonce is the 2 byte, per-join-request nonce drawn from the Radio
// Port's CSPRNG. The wire encoding is little-endian.
type DevNonce [2]byte

// MarshalBinary encodes the DevNonce in little-endian wire order.
func (n DevNonce) MarshalBinary() ([]byte, error) {
	return []byte{n[0], n[1]}, nil
}

// UnmarshalBinary decodes the DevNonce from little-endian wire order.
func (n *DevNonce) UnmarshalBinary(data []byte) error {
	if len(data) != len(n) {
		return fmt.Errorf("lorawan: %d bytes of data are expected", len(n))
	}
	copy(n[:], data)
	return nil
}

// Uint16 returns the nonce as a plain integer, first byte least
// significant.
func (n DevNonce) Uint16() uint16 {
	return uint16(n[0]) | uint16(n[1])<<8
}

// JoinNonce is the 3 byte, server-chosen nonce carried in a JoinAccept.
type JoinNonce [3]byte

// MarshalBinary encodes the JoinNonce in little-endian wire order.
func (n JoinNonce) MarshalBinary() ([]byte, error) {
	return []byte{n[0], n[1], n[2]}, nil
}

// UnmarshalBinary decodes the JoinNonce from little-endian wire order.
func (n *JoinNonce) UnmarshalBinary(data []byte) error {
	if len(data) != len(n) {
		return fmt.Errorf("lorawan: %d bytes of data are expected", len(n))
	}
	copy(n[:], data)
	return nil
}

// HomeNetID is the 3 byte network identifier carried in a JoinAccept.
type HomeNetID [3]byte

// String implements fmt.Stringer.
func (n HomeNetID) String() string {
	return hex.EncodeToString(n[:])
}

// MarshalBinary encodes the HomeNetID in little-endian wire order.
func (n HomeNetID) MarshalBinary() ([]byte, error) {
	return []byte{n[0], n[1], n[2]}, nil
}

// UnmarshalBinary decodes the HomeNetID from little-endian wire order.
func (n *HomeNetID) UnmarshalBinary(data []byte) error {
	if len(data) != len(n) {
		return fmt.Errorf("lorawan: %d bytes of data are expected", len(n))
	}
	copy(n[:], data)
	return nil
}

// MIC represents the 4 byte message integrity code: a CMAC truncation.
type MIC [4]byte

// String implements fmt.Stringer.
func (m MIC) String() string {
	return hex.EncodeToString(m[:])
}
