// Package session holds the pre-join Credentials and post-join Session
// types from spec §3, plus their mutators. A violated invariant is a
// programming error (a panic), not a runtime error the caller is expected
// to handle. IncrementFCntUp is the only mutator that checks one (uint32
// overflow); ApplySettings, SetTxDR and CommitFCntDown store their
// argument without checking ranges or monotonicity.
package session

import (
	"fmt"

	"github.com/tweedegolf/lorawan-device"
)

// nonceHistorySize is the number of recently used DevNonce values tracked
// per spec §4.1 ("must never repeat for the same DevEUI").
const nonceHistorySize = 32

// Credentials is the immutable pre-join state: a device's manufacture-time
// identity and root key.
type Credentials struct {
	JoinEUI lorawan.EUI64
	DevEUI  lorawan.EUI64
	AppKey  lorawan.AES128Key

	nonces    [nonceHistorySize]lorawan.DevNonce
	nonceUsed [nonceHistorySize]bool
	nonceNext int
}

// NewCredentials returns Credentials with an empty nonce history.
func NewCredentials(joinEUI, devEUI lorawan.EUI64, appKey lorawan.AES128Key) Credentials {
	return Credentials{JoinEUI: joinEUI, DevEUI: devEUI, AppKey: appKey}
}

// HasUsedNonce reports whether n is present in the recent-nonce history,
// per spec §8 property 6: "join with DevNonce=n twice for the same DevEUI
// must reject the second attempt locally if n is in the recent-nonce set."
func (c *Credentials) HasUsedNonce(n lorawan.DevNonce) bool {
	for i, used := range c.nonceUsed {
		if used && c.nonces[i] == n {
			return true
		}
	}
	return false
}

// RecordNonce appends n to the ring buffer, evicting the oldest entry once
// nonceHistorySize nonces have been recorded.
func (c *Credentials) RecordNonce(n lorawan.DevNonce) {
	c.nonces[c.nonceNext] = n
	c.nonceUsed[c.nonceNext] = true
	c.nonceNext = (c.nonceNext + 1) % nonceHistorySize
}

// String redacts the root key; Credentials is never logged with it in
// plaintext (spec §3: "Keys never leave the module in plaintext through
// the public surface").
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{JoinEUI: %s, DevEUI: %s}", c.JoinEUI, c.DevEUI)
}
