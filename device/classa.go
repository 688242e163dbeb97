package device

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tweedegolf/lorawan-device/frame"
	"github.com/tweedegolf/lorawan-device/radio"
	"github.com/tweedegolf/lorawan-device/region"
	"github.com/tweedegolf/lorawan-device/sensitivity"
)

// ClassA is the view-conversion of a JoinedDevice into its Class-A
// operational role (spec §6.2): the only way to send application uplinks.
type ClassA struct {
	device *JoinedDevice
}

// ClassA converts a JoinedDevice into its Class-A view.
func (d *JoinedDevice) ClassA() *ClassA {
	return &ClassA{device: d}
}

// Downlink is what ClassA.Uplink returns on a received downlink: the
// decoded frame plus the raw receive diagnostics and a computed link
// margin for the application's own use (SPEC_FULL's airtime/sensitivity
// wiring; spec.md itself only names {port, bytes, info}).
type Downlink struct {
	AckOnly    bool
	Port       uint8
	Bytes      []byte
	TestPort   bool
	FPending   bool
	Info       radio.Info
	LinkMargin float32
}

// MaxPayload returns the maximum FRMPayload size for the device's current
// TxDr (spec §6.2).
func (c *ClassA) MaxPayload() (int, error) {
	return c.device.region.MaxPayload(int(c.device.sess.TxDr))
}

// Uplink transmits payload on port, then listens on RX1/RX2 per the
// timing contract of spec §4.4, returning the decoded downlink if one
// arrived. A nil Downlink and nil error means no downlink (spec §6.2's
// Option<Downlink> collapses to (nil, nil) in Go).
//
// If a previous downlink queued MAC-command answers that overflowed the
// FOpts cap, Uplink first flushes them on a port-0 uplink before sending
// the requested application frame (spec §9 Design Notes).
func (c *ClassA) Uplink(payload []byte, port uint8, confirmed bool) (*Downlink, *DeviceError) {
	d := c.device
	log := d.cfg.logger().WithField("correlation_id", uuid.NewString())

	if d.needsFlush {
		log.Debug("uplink: flushing overflowed mac answers")
		flushBytes, err := frame.BuildMACOnlyUplink(&d.sess, d.sess.PendingMACAnswers())
		if err != nil {
			return nil, &DeviceError{Frame: asFrameError(err)}
		}
		if _, derr := d.sendAndListen(flushBytes, log); derr != nil {
			return nil, derr
		}
		d.needsFlush = false
	}

	maxPayload, err := d.region.MaxPayload(int(d.sess.TxDr))
	if err != nil {
		return nil, &DeviceError{Radio: &RadioError{Kind: UnsupportedDataRate, err: err}}
	}

	frameBytes, err := frame.BuildUplink(&d.sess, maxPayload, payload, port, confirmed)
	if err != nil {
		return nil, &DeviceError{Frame: asFrameError(err)}
	}
	log.Debug("uplink: built frame")

	return d.sendAndListen(frameBytes, log)
}

// sendAndListen drives one transmit-then-two-receive-windows exchange and
// parses whatever RX1/RX2 yields, per spec §4.4/§5's ordering guarantee
// (build -> bump FCntUp -> TX -> RX1 -> optional RX2 -> parse -> bump
// FCntDown). FrameBytes has already had FCntUp bumped by the caller
// (frame.BuildUplink/BuildMACOnlyUplink do this internally).
func (d *JoinedDevice) sendAndListen(frameBytes []byte, log *logrus.Entry) (*Downlink, *DeviceError) {
	var noiseBuf [1]byte
	if err := d.radio.TryFillBytes(noiseBuf[:]); err != nil {
		return nil, &DeviceError{Radio: &RadioError{Kind: RandomFailure, err: err}}
	}
	txCh := d.region.TxChannel(noiseBuf[0])
	txDr, err := d.region.DataRateTable(int(d.sess.TxDr))
	if err != nil {
		return nil, &DeviceError{Radio: &RadioError{Kind: UnsupportedDataRate, err: err}}
	}

	if dur, aerr := airtimeFor(txDr, len(frameBytes)); aerr == nil {
		if frac := d.dutyCycle.record(dur); frac > 1.0 {
			log.Warnf("uplink: duty-cycle budget exceeded (%.0f%% of budget used)", frac*100)
		}
	}

	if err := d.radio.SetChannel(channelConfig(txCh, txDr)); err != nil {
		return nil, &DeviceError{Radio: radioFault(err)}
	}
	if err := d.radio.StartTransmit(frameBytes); err != nil {
		return nil, &DeviceError{Radio: radioFault(err)}
	}
	if rerr := pollTransmit(d.radio, TxTimeout); rerr != nil {
		return nil, &DeviceError{Radio: rerr}
	}
	log.Trace("uplink: tx complete")

	buf := make([]byte, 256)

	rxDelay := d.sess.Settings.RxDelaySeconds()
	rx1Delay := secondsToDuration(rxDelay)

	d.radio.DelayUs(rx1Delay - DelayMargin)
	rx1Ch, rx1Dr, err := d.region.Rx1Channel(txCh.FreqKHz, int(d.sess.TxDr), int(d.sess.Settings.Rx1DrOffset))
	if err != nil {
		return nil, &DeviceError{Radio: &RadioError{Kind: UnsupportedDataRate, err: err}}
	}
	rx1DrTable, err := d.region.DataRateTable(rx1Dr)
	if err != nil {
		return nil, &DeviceError{Radio: &RadioError{Kind: UnsupportedDataRate, err: err}}
	}
	if err := d.radio.SetChannel(channelConfig(rx1Ch, rx1DrTable)); err != nil {
		return nil, &DeviceError{Radio: radioFault(err)}
	}
	if err := d.radio.StartReceive(false); err != nil {
		return nil, &DeviceError{Radio: radioFault(err)}
	}
	got, rx1Elapsed, rerr := listenWindow(d.radio, RxTimeout)
	if rerr != nil {
		return nil, &DeviceError{Radio: rerr}
	}

	var info radio.Info
	recvDR := rx1DrTable
	if !got {
		log.Trace("uplink: rx1 timed out, waiting for rx2")
		gap := rx2Offset - rx1Elapsed
		if gap > 0 {
			d.radio.DelayUs(gap)
		}

		rx2Dr, err := d.region.DataRateTable(int(d.sess.Settings.Rx2Dr))
		if err != nil {
			return nil, &DeviceError{Radio: &RadioError{Kind: UnsupportedDataRate, err: err}}
		}
		rx2Ch, err := d.region.Rx2Channel(int(d.sess.Settings.Rx2Dr))
		if err != nil {
			return nil, &DeviceError{Radio: &RadioError{Kind: UnsupportedDataRate, err: err}}
		}
		if err := d.radio.SetChannel(channelConfig(rx2Ch, rx2Dr)); err != nil {
			return nil, &DeviceError{Radio: radioFault(err)}
		}
		if err := d.radio.StartReceive(false); err != nil {
			return nil, &DeviceError{Radio: radioFault(err)}
		}
		got, _, rerr = listenWindow(d.radio, RxTimeout)
		if rerr != nil {
			return nil, &DeviceError{Radio: rerr}
		}
		if !got {
			log.Debug("uplink: no downlink on rx1 or rx2")
			return nil, nil
		}
		recvDR = rx2Dr
	}

	n, recvInfo, err := d.radio.GetReceived(buf)
	if err != nil {
		return nil, &DeviceError{Radio: radioFault(err)}
	}
	info = recvInfo

	parsed, err := frame.ParseDownlink(&d.sess, buf[:n])
	if err != nil {
		ferr := asFrameError(err)
		if ferr.Kind == frame.ReplayOrGap || ferr.Kind == frame.FOptsOverflow {
			log.WithError(err).Warn("uplink: downlink dropped")
			if ferr.Kind == frame.FOptsOverflow {
				d.needsFlush = true
			}
		} else {
			log.WithError(err).Debug("uplink: downlink dropped")
		}
		return nil, nil
	}

	margin := linkMargin(d.cfg, recvDR, info)

	return &Downlink{
		AckOnly:    parsed.AckOnly,
		Port:       parsed.Port,
		Bytes:      parsed.Bytes,
		TestPort:   parsed.TestPort,
		FPending:   parsed.FPending,
		Info:       info,
		LinkMargin: margin,
	}, nil
}

func secondsToDuration(s uint8) time.Duration {
	return time.Duration(s) * time.Second
}

// linkMargin turns the radio's raw SNR into a link-budget margin the
// application can act on (SPEC_FULL's airtime/sensitivity wiring; not
// named by spec.md's own interface). noiseFigure uses a typical LoRa
// front-end value; this is a diagnostic, not a protocol computation.
func linkMargin(cfg Config, dr region.DataRate, info radio.Info) float32 {
	const noiseFigure = 6.0
	return sensitivity.CalculateLinkBudget(dr.Bandwidth*1000, noiseFigure, float32(info.SNR), cfg.txPowerDBm())
}
