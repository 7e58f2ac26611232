package domain

import (
	"fmt"

	"github.com/croft3/udpnode/checksum"
)

// IPFamily selects the address family a socket operates on.
type IPFamily int

const (
	IPv4 IPFamily = iota
	IPv6
)

// Network returns the net package network name for the family.
func (f IPFamily) Network() string {
	if f == IPv4 {
		return "udp4"
	}
	return "udp6"
}

func (f IPFamily) String() string {
	if f == IPv4 {
		return "ipv4"
	}
	return "ipv6"
}

// Defaults applied at node construction when the caller leaves
// the corresponding config fields zero.
const (
	DefaultMaxMessageSize = 1024
	DefaultMaxQueueDepth  = 100
)

// Datagram is one decoded inbound message. It is created by the
// receive loop and immutable afterwards; popping it from the
// receive queue hands ownership to the caller.
type Datagram struct {
	SrcPort   uint16 // sender's source port
	SrcAddr   string // sender's IP address, textual
	Timestamp int64  // sender-supplied send time, unix seconds
	Payload   string
	Checksum  uint32 // checksum field as received, low 8 bits meaningful
	Join      bool   // sender requests receive-loop termination
}

// Valid reports whether the payload matches the received checksum.
func (d Datagram) Valid() bool {
	return checksum.Verify(d.Payload, d.Checksum)
}

func (d Datagram) String() string {
	validity := "checksum invalid"
	if d.Valid() {
		validity = "checksum valid"
	}
	return fmt.Sprintf(
		"from %s:%d at %d: %q (crc=%d, join=%t, %s)",
		d.SrcAddr, d.SrcPort, d.Timestamp, d.Payload, d.Checksum, d.Join, validity,
	)
}
