// Package device implements the Class-A MAC engine: join, the
// transmit-then-two-receive-windows uplink exchange, timing, and the
// state machine that sits between an application and a radio.Port (spec
// §4.4/§4.5/§6.2). It is the only package in this module with
// time-dependent behavior.
package device
