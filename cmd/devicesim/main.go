// Command devicesim demonstrates a Class-A device driving an OTAA join and
// a handful of uplinks over a simulated radio, persisting its Session to
// Redis between runs the way a real host would persist to NVM (spec §6.4:
// this module performs no NVM I/O itself, the host does). It is a
// reference harness, not a production device host.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tweedegolf/lorawan-device"
	"github.com/tweedegolf/lorawan-device/device"
	"github.com/tweedegolf/lorawan-device/frame/frametest"
	"github.com/tweedegolf/lorawan-device/radio/radiotest"
	"github.com/tweedegolf/lorawan-device/region"
	"github.com/tweedegolf/lorawan-device/session"
)

func main() {
	var (
		redisAddr  = flag.String("redis-addr", "localhost:6379", "Redis address for session persistence")
		devEUIHex  = flag.String("dev-eui", "0001020304050607", "device EUI, hex")
		joinEUIHex = flag.String("join-eui", "0102030405060708", "join EUI, hex")
		appKeyHex  = flag.String("app-key", "00112233445566778899aabbccddeeff", "AppKey, hex")
		uplinks    = flag.Int("uplinks", 3, "number of application uplinks to send after joining")
		logLevel   = flag.String("log-level", "info", "logrus level")
	)
	flag.Parse()

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(lvl)
	}

	if err := run(log, *redisAddr, *devEUIHex, *joinEUIHex, *appKeyHex, *uplinks); err != nil {
		log.WithError(err).Fatal("devicesim: exiting")
	}
}

func run(log *logrus.Logger, redisAddr, devEUIHex, joinEUIHex, appKeyHex string, numUplinks int) error {
	var devEUI, joinEUI lorawan.EUI64
	if err := devEUI.UnmarshalText([]byte(devEUIHex)); err != nil {
		return errors.Wrap(err, "devicesim: parse -dev-eui")
	}
	if err := joinEUI.UnmarshalText([]byte(joinEUIHex)); err != nil {
		return errors.Wrap(err, "devicesim: parse -join-eui")
	}
	var appKey lorawan.AES128Key
	if err := appKey.UnmarshalText([]byte(appKeyHex)); err != nil {
		return errors.Wrap(err, "devicesim: parse -app-key")
	}

	ctx := context.Background()
	store := newSessionStore(redisAddr)
	defer store.Close()

	accept, err := frametest.BuildJoinAccept(appKey, lorawan.JoinNonce{0x01, 0x02, 0x03}, lorawan.HomeNetID{0x13, 0x00, 0x00}, lorawan.DevAddr{0x26, 0x0B, 0x12, 0x34}, 0x00, 0x01)
	if err != nil {
		return errors.Wrap(err, "devicesim: build simulated join accept")
	}
	radio := radiotest.New(50*time.Millisecond, []radiotest.Window{
		{RespondAt: 100 * time.Millisecond, Frame: accept},
	})

	cfg := device.Config{Logger: log}

	joined, err := loadOrJoin(ctx, store, devEUI, joinEUI, appKey, radio, cfg, log)
	if err != nil {
		return err
	}

	for i := 0; i < numUplinks; i++ {
		payload := []byte(fmt.Sprintf("uplink-%d", i))
		dl, derr := joined.ClassA().Uplink(payload, 1, false)
		if derr != nil {
			log.WithError(derr).Warn("devicesim: uplink failed")
			continue
		}
		if dl != nil {
			log.WithFields(logrus.Fields{
				"port":        dl.Port,
				"bytes":       string(dl.Bytes),
				"link_margin": dl.LinkMargin,
			}).Info("devicesim: downlink received")
		} else {
			log.Info("devicesim: no downlink")
		}

		if err := store.Save(ctx, devEUI, joined.Session()); err != nil {
			log.WithError(err).Warn("devicesim: failed to persist session")
		}
	}

	return nil
}

func loadOrJoin(ctx context.Context, store *sessionStore, devEUI, joinEUI lorawan.EUI64, appKey lorawan.AES128Key, radioPort *radiotest.Mock, cfg device.Config, log *logrus.Logger) (*device.JoinedDevice, error) {
	if sess, ok, err := store.Load(ctx, devEUI); err != nil {
		log.WithError(err).Warn("devicesim: session load failed, joining fresh")
	} else if ok {
		log.Info("devicesim: resuming persisted session")
		return device.NewABP(radioPort, sess, region.EU868, cfg)
	}

	creds := session.NewCredentials(joinEUI, devEUI, appKey)
	unjoined, err := device.NewOTAA(radioPort, creds, region.EU868, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "devicesim: new_otaa")
	}

	joined, jerr := unjoined.Join()
	if jerr != nil {
		return nil, errors.Errorf("devicesim: join failed: %+v", jerr)
	}

	if err := store.Save(ctx, devEUI, joined.Session()); err != nil {
		log.WithError(err).Warn("devicesim: failed to persist session after join")
	}
	return joined, nil
}

// sessionStore persists a Session as JSON under a DevEUI-keyed Redis
// string, standing in for the host's real NVM driver (spec §6.4).
type sessionStore struct {
	client *redis.Client
}

func newSessionStore(addr string) *sessionStore {
	return &sessionStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (s *sessionStore) Close() error {
	return s.client.Close()
}

func (s *sessionStore) key(devEUI lorawan.EUI64) string {
	return "lorawan-device:session:" + devEUI.String()
}

func (s *sessionStore) Save(ctx context.Context, devEUI lorawan.EUI64, sess session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "sessionStore: marshal session")
	}
	return s.client.Set(ctx, s.key(devEUI), data, 0).Err()
}

func (s *sessionStore) Load(ctx context.Context, devEUI lorawan.EUI64) (session.Session, bool, error) {
	var sess session.Session
	data, err := s.client.Get(ctx, s.key(devEUI)).Bytes()
	if err == redis.Nil {
		return sess, false, nil
	}
	if err != nil {
		return sess, false, errors.Wrap(err, "sessionStore: get")
	}
	if err := json.Unmarshal(data, &sess); err != nil {
		return sess, false, errors.Wrap(err, "sessionStore: unmarshal session")
	}
	return sess, true, nil
}
