package frame

// MType represents the message type carried in the MAC header.
type MType byte

// Message types this module builds or parses (spec §3's MHDR table; the
// join-server-facing RejoinRequest/Proprietary types are out of scope).
const (
	MTypeJoinRequest         MType = 0
	MTypeJoinAccept          MType = 1
	MTypeUnconfirmedDataUp   MType = 2
	MTypeUnconfirmedDataDown MType = 3
	MTypeConfirmedDataUp     MType = 4
	MTypeConfirmedDataDown   MType = 5
)

// Major defines the major version of data message.
type Major byte

// LoRaWANR1 is the only major version in use.
const LoRaWANR1 Major = 0

// MHDR represents the MAC header: MType (3 bits) : RFU (3 bits) : Major
// (2 bits), per spec §3.
type MHDR struct {
	MType MType
	Major Major
}

// MarshalBinary packs the header into its single wire byte.
func (h MHDR) MarshalBinary() ([]byte, error) {
	return []byte{(byte(h.MType) << 5) | byte(h.Major)}, nil
}

// UnmarshalBinary unpacks the header from its single wire byte.
func (h *MHDR) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return newError(MalformedFrame)
	}
	h.MType = MType(data[0] >> 5)
	h.Major = Major(data[0] & 0x03)
	return nil
}

func (h MHDR) isUplink() bool {
	switch h.MType {
	case MTypeJoinRequest, MTypeUnconfirmedDataUp, MTypeConfirmedDataUp:
		return true
	default:
		return false
	}
}
