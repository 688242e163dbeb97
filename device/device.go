package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	pkgerrors "github.com/pkg/errors"

	"github.com/tweedegolf/lorawan-device"
	"github.com/tweedegolf/lorawan-device/frame"
	"github.com/tweedegolf/lorawan-device/radio"
	"github.com/tweedegolf/lorawan-device/region"
	"github.com/tweedegolf/lorawan-device/session"
)

// UnjoinedDevice and JoinedDevice are the two distinct named types spec §9
// Design Notes calls for in place of Rust's phantom-typed Device<Unjoined>
// / Device<Joined>: the Go type system already makes it impossible to call
// ClassA methods before a Join call has produced a JoinedDevice, and there
// is no single mutable "maybe-joined" object to collapse them into.
type UnjoinedDevice struct {
	radio  radio.Port
	creds  session.Credentials
	region region.Region
	cfg    Config
}

// JoinedDevice is the post-join device; use ClassA to drive the Class-A
// uplink exchange.
type JoinedDevice struct {
	radio  radio.Port
	sess   session.Session
	region region.Region
	cfg    Config

	dutyCycle  *dutyCycleTracker
	needsFlush bool
}

// NewOTAA constructs an UnjoinedDevice that must go through Join before it
// can exchange application data (spec §6.2).
func NewOTAA(r radio.Port, creds session.Credentials, regionName region.Name, cfg Config) (*UnjoinedDevice, error) {
	reg, err := region.Get(regionName)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "device: new_otaa")
	}
	return &UnjoinedDevice{radio: r, creds: creds, region: reg, cfg: cfg}, nil
}

// NewABP constructs an already-Joined device from a pre-provisioned
// Session, skipping the join exchange entirely (spec §6.2, GLOSSARY ABP).
func NewABP(r radio.Port, sess session.Session, regionName region.Name, cfg Config) (*JoinedDevice, error) {
	reg, err := region.Get(regionName)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "device: new_abp")
	}
	return &JoinedDevice{
		radio:     r,
		sess:      sess,
		region:    reg,
		cfg:       cfg,
		dutyCycle: newDutyCycleTracker(cfg.dutyCycleBudget()),
	}, nil
}

// Session returns a copy of the device's current session state, for the
// host to persist to NVM (spec §6.4).
func (d *JoinedDevice) Session() session.Session {
	return d.sess
}

func channelConfig(ch region.Channel, dr region.DataRate) radio.ChannelConfig {
	return radio.ChannelConfig{
		FreqKHz: ch.FreqKHz,
		BwKHz:   uint16(dr.Bandwidth),
		SF:      uint8(dr.SpreadFactor),
		CR:      txCodingRate,
	}
}

// pollTransmit blocks (via r.DelayUs, the engine's only suspension point)
// until CheckTransmit reports completion or timeout elapses.
func pollTransmit(r radio.Port, timeout time.Duration) *RadioError {
	var elapsed time.Duration
	for {
		done, err := r.CheckTransmit()
		if err != nil {
			return radioFault(err)
		}
		if done {
			return nil
		}
		if elapsed >= timeout {
			return radioTimeout()
		}
		wait := Interval
		if elapsed+wait > timeout {
			wait = timeout - elapsed
		}
		r.DelayUs(wait)
		elapsed += wait
	}
}

// listenWindow blocks until CheckReceive reports a frame, or timeout
// elapses and the radio is no longer busy (spec §4.4's "continue past
// RX_TIMEOUT while busy" rule). It returns whether a frame arrived and how
// long the window actually ran, so callers can account for the overrun
// when scheduling the next window.
func listenWindow(r radio.Port, timeout time.Duration) (bool, time.Duration, *RadioError) {
	var elapsed time.Duration
	for {
		done, err := r.CheckReceive()
		if err != nil {
			return false, elapsed, radioFault(err)
		}
		if done {
			return true, elapsed, nil
		}
		if elapsed >= timeout {
			busy, err := r.IsBusy()
			if err != nil {
				return false, elapsed, radioFault(err)
			}
			if !busy {
				return false, elapsed, nil
			}
		}
		r.DelayUs(Interval)
		elapsed += Interval
	}
}

// Join runs the OTAA exchange (spec §4.4): a JoinRequest on a randomly
// chosen join channel at DR0, then up to two receive windows for the
// JoinAccept. On any failure it returns the original Credentials so the
// caller can retry without re-provisioning the device (spec §9's
// JoinError redesign).
func (d *UnjoinedDevice) Join() (*JoinedDevice, *JoinError) {
	log := d.cfg.logger().WithField("correlation_id", uuid.NewString())
	log.Debug("join: starting")

	var noiseBuf [1]byte
	if err := d.radio.TryFillBytes(noiseBuf[:]); err != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: &RadioError{Kind: RandomFailure, err: err}}
	}
	joinCh := d.region.JoinChannel(noiseBuf[0])
	dr0, err := d.region.DataRateTable(0)
	if err != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: &RadioError{Kind: UnsupportedDataRate, err: err}}
	}

	nonce, rerr := d.freshNonce()
	if rerr != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: rerr}
	}

	reqBytes, err := frame.BuildJoinRequest(&d.creds, nonce)
	if err != nil {
		return nil, &JoinError{Credentials: d.creds, Frame: asFrameError(err)}
	}

	if err := d.radio.SetChannel(channelConfig(joinCh, dr0)); err != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: radioFault(err)}
	}
	if err := d.radio.StartTransmit(reqBytes); err != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: radioFault(err)}
	}
	if rerr := pollTransmit(d.radio, TxTimeout); rerr != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: rerr}
	}
	log.Trace("join: request transmitted")

	d.creds.RecordNonce(nonce)

	buf := make([]byte, 64)

	d.radio.DelayUs(d.region.JoinAcceptDelay1() - DelayMargin)
	if err := d.radio.SetChannel(channelConfig(joinCh, dr0)); err != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: radioFault(err)}
	}
	if err := d.radio.StartReceive(false); err != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: radioFault(err)}
	}
	got, rx1Elapsed, rerr := listenWindow(d.radio, RxTimeout)
	if rerr != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: rerr}
	}

	if got {
		log.Debug("join: accept received on rx1")
		return d.completeJoin(buf, nonce, log)
	}

	log.Trace("join: rx1 timed out, waiting for rx2")
	gap := d.region.JoinAcceptDelay2() - d.region.JoinAcceptDelay1() - rx1Elapsed
	if gap > 0 {
		d.radio.DelayUs(gap - DelayMargin)
	}

	rx2Dr, err := d.region.DataRateTable(d.region.DefaultRx2DR())
	if err != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: &RadioError{Kind: UnsupportedDataRate, err: err}}
	}
	rx2Ch, err := d.region.Rx2Channel(d.region.DefaultRx2DR())
	if err != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: &RadioError{Kind: UnsupportedDataRate, err: err}}
	}
	if err := d.radio.SetChannel(channelConfig(rx2Ch, rx2Dr)); err != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: radioFault(err)}
	}
	if err := d.radio.StartReceive(false); err != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: radioFault(err)}
	}
	got, _, rerr = listenWindow(d.radio, RxTimeout)
	if rerr != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: rerr}
	}
	if !got {
		log.Warn("join: timed out on rx1 and rx2")
		return nil, &JoinError{Credentials: d.creds, TimedOut: true}
	}

	log.Debug("join: accept received on rx2")
	return d.completeJoin(buf, nonce, log)
}

func (d *UnjoinedDevice) completeJoin(buf []byte, nonce lorawan.DevNonce, log *logrus.Entry) (*JoinedDevice, *JoinError) {
	n, _, err := d.radio.GetReceived(buf)
	if err != nil {
		return nil, &JoinError{Credentials: d.creds, Radio: radioFault(err)}
	}
	result, err := frame.ParseJoinAccept(&d.creds, nonce, buf[:n])
	if err != nil {
		log.WithError(err).Warn("join: accept failed to parse")
		return nil, &JoinError{Credentials: d.creds, Frame: asFrameError(err)}
	}

	sess := session.New(result.DevAddr, result.NwkSKey, result.AppSKey, result.Settings, 0)
	return &JoinedDevice{
		radio:     d.radio,
		sess:      sess,
		region:    d.region,
		cfg:       d.cfg,
		dutyCycle: newDutyCycleTracker(d.cfg.dutyCycleBudget()),
	}, nil
}

// freshNonce draws DevNonce values from the radio's CSPRNG until it finds
// one not already in the recent-nonce history (spec §4.1/§8 property 6).
func (d *UnjoinedDevice) freshNonce() (lorawan.DevNonce, *RadioError) {
	const maxAttempts = 8
	var nonceBuf [2]byte
	var nonce lorawan.DevNonce
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := d.radio.TryFillBytes(nonceBuf[:]); err != nil {
			return nonce, &RadioError{Kind: RandomFailure, err: err}
		}
		_ = nonce.UnmarshalBinary(nonceBuf[:])
		if !d.creds.HasUsedNonce(nonce) {
			return nonce, nil
		}
	}
	return nonce, &RadioError{Kind: RandomFailure, err: fmt.Errorf("device: exhausted DevNonce attempts against recent-nonce history")}
}

func asFrameError(err error) *frame.Error {
	var ferr *frame.Error
	if errors.As(err, &ferr) {
		return ferr
	}
	return &frame.Error{}
}
