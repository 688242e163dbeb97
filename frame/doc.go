/*

Package frame implements spec §4.1, the Frame Codec: building uplink
PHYPayload frames, parsing downlink and join-accept frames, and all the
cryptography (AES-128-CTR encryption, CMAC-AES128 message integrity codes)
that goes with them.

It is the only package that touches raw frame bytes; everything above it
(package device) calls the Build and Parse functions and deals in Go values.

*/
package frame
