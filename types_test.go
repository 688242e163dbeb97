package lorawan

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEUI64(t *testing.T) {
	Convey("Given an EUI64 0001020304050607", t, func() {
		eui := EUI64{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}

		Convey("Then MarshalBinary returns the little-endian wire bytes", func() {
			b, err := eui.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, 0x00})
		})

		Convey("Then the wire bytes unmarshal back to the original EUI64", func() {
			b, _ := eui.MarshalBinary()
			var out EUI64
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, eui)
		})

		Convey("Then MarshalText returns the hex string in struct order", func() {
			text, err := eui.MarshalText()
			So(err, ShouldBeNil)
			So(string(text), ShouldEqual, "0001020304050607")
		})
	})
}

func TestDevAddr(t *testing.T) {
	Convey("Given DevAddr 0x260B1234", t, func() {
		addr := DevAddr{0x26, 0x0B, 0x12, 0x34}

		Convey("Then MarshalBinary returns the little-endian wire bytes", func() {
			b, err := addr.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{0x34, 0x12, 0x0B, 0x26})
		})

		Convey("Then round-tripping through the wire form is lossless", func() {
			b, _ := addr.MarshalBinary()
			var out DevAddr
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, addr)
		})
	})
}

func TestDevNonce(t *testing.T) {
	Convey("Given DevNonce 0x2A00 (wire order 00 2A)", t, func() {
		n := DevNonce{0x00, 0x2A}

		Convey("Then Uint16 returns 0x2A00", func() {
			So(n.Uint16(), ShouldEqual, uint16(0x2A00))
		})

		Convey("Then MarshalBinary/UnmarshalBinary round-trips", func() {
			b, err := n.MarshalBinary()
			So(err, ShouldBeNil)
			var out DevNonce
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, n)
		})
	})
}

func TestAES128Key(t *testing.T) {
	Convey("Given the hex string 000102030405060708090a0b0c0d0e0f", t, func() {
		var key AES128Key

		Convey("Then UnmarshalText decodes it and String round-trips it", func() {
			So(key.UnmarshalText([]byte("000102030405060708090a0b0c0d0e0f")), ShouldBeNil)
			So(key.String(), ShouldEqual, "000102030405060708090a0b0c0d0e0f")
		})

		Convey("Then a wrong-length string is rejected", func() {
			So(key.UnmarshalText([]byte("0001")), ShouldNotBeNil)
		})
	})
}
