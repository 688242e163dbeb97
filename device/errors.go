package device

import (
	"fmt"

	"github.com/tweedegolf/lorawan-device/frame"
	"github.com/tweedegolf/lorawan-device/session"
)

// RadioErrorKind enumerates the RadioError taxonomy from spec §7.
type RadioErrorKind int

// Recognized RadioError kinds.
const (
	HardwareFault RadioErrorKind = iota
	RandomFailure
	UnsupportedDataRate
	Timeout
)

func (k RadioErrorKind) String() string {
	switch k {
	case HardwareFault:
		return "HardwareFault"
	case RandomFailure:
		return "RandomFailure"
	case UnsupportedDataRate:
		return "UnsupportedDataRate"
	case Timeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// RadioError wraps a failure reported by the radio.Port, or a timeout the
// engine itself detected while polling one.
type RadioError struct {
	Kind RadioErrorKind
	err  error
}

func (e *RadioError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("device: radio %s: %v", e.Kind, e.err)
	}
	return fmt.Sprintf("device: radio %s", e.Kind)
}

func (e *RadioError) Unwrap() error { return e.err }

func radioFault(err error) *RadioError {
	return &RadioError{Kind: HardwareFault, err: err}
}

func radioTimeout() *RadioError {
	return &RadioError{Kind: Timeout}
}

// JoinError is returned by (*UnjoinedDevice).Join on any failure. It
// carries Credentials (not the whole device) so the caller can retry
// without losing them, replacing the source's cyclic
// DeviceError::Join(Device) shape (spec §9 Design Notes).
type JoinError struct {
	Credentials session.Credentials
	TimedOut    bool
	Frame       *frame.Error
	Radio       *RadioError
}

func (e *JoinError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("device: join timed out for %s", e.Credentials)
	case e.Frame != nil:
		return fmt.Sprintf("device: join failed: %v", e.Frame)
	case e.Radio != nil:
		return fmt.Sprintf("device: join failed: %v", e.Radio)
	default:
		return "device: join failed"
	}
}

func (e *JoinError) Unwrap() error {
	if e.Frame != nil {
		return e.Frame
	}
	if e.Radio != nil {
		return e.Radio
	}
	return nil
}

// DeviceError is the disjoint union of RadioError/FrameError an uplink can
// fail with (spec §7). A nil *DeviceError, like a nil error, means success.
type DeviceError struct {
	Radio *RadioError
	Frame *frame.Error
}

func (e *DeviceError) Error() string {
	switch {
	case e.Radio != nil:
		return fmt.Sprintf("device: uplink failed: %v", e.Radio)
	case e.Frame != nil:
		return fmt.Sprintf("device: uplink failed: %v", e.Frame)
	default:
		return "device: uplink failed"
	}
}

func (e *DeviceError) Unwrap() error {
	if e.Radio != nil {
		return e.Radio
	}
	if e.Frame != nil {
		return e.Frame
	}
	return nil
}
