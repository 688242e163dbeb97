/*

Package lorawan provides the identifier and key types shared by every other
package in this module: EUIs, the device address, the AES-128 root and
session keys, and the join/device nonces exchanged during activation.

Frame encoding/decoding and MIC calculation live in the frame package. MAC
commands live in the mac package. Region-specific channel plans live in the
region package. The Class-A join/uplink state machine lives in the device
package.

*/
package lorawan
