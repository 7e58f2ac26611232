// Package wire implements the self-describing frame put on every
// outgoing datagram: a flat JSON object carrying the send time, the
// payload, an 8-bit XOR checksum of the payload, and an optional
// join control flag.
package wire

import (
	"encoding/json"
	"time"

	"github.com/croft3/udpnode/checksum"
	"github.com/croft3/udpnode/errs"
)

// Message is the decoded wire frame.
type Message struct {
	Time uint64 `json:"Time"`
	Msg  string `json:"Msg"`
	CRC  uint32 `json:"CRC"`
	Join bool   `json:"Join_thr,omitempty"`
}

// envelope mirrors Message with pointer fields so Decode can tell a
// missing key from a zero value.
type envelope struct {
	Time *uint64 `json:"Time"`
	Msg  *string `json:"Msg"`
	CRC  *uint32 `json:"CRC"`
	Join *bool   `json:"Join_thr"`
}

// TimeStamper supplies the send timestamp stamped into frames.
type TimeStamper interface {
	Timestamp() int64
}

type systemClock struct{}

func (systemClock) Timestamp() int64 {
	return time.Now().Unix()
}

// Codec encodes outgoing frames. Decoding is stateless and lives in
// the package-level Decode.
type Codec struct {
	clock TimeStamper
}

func NewCodec() *Codec {
	return &Codec{clock: systemClock{}}
}

// NewCodecWithClock injects the timestamp source, for tests.
func NewCodecWithClock(ts TimeStamper) *Codec {
	return &Codec{clock: ts}
}

// Encode frames payload with the current timestamp and its checksum.
// The join flag is serialized only when set. Encoding cannot fail
// for any string payload.
func (c *Codec) Encode(payload string, join bool) ([]byte, error) {
	return json.Marshal(Message{
		Time: uint64(c.clock.Timestamp()),
		Msg:  payload,
		CRC:  uint32(checksum.Compute(payload)),
		Join: join,
	})
}

// Decode parses a received buffer. Each mandatory field that is
// absent yields its own failure; a buffer that is not valid JSON at
// all reports the same way as an object with no fields. The checks
// run Time, Msg, CRC and the last failure wins, so a frame missing
// several fields reports the CRC. A missing join flag is not an
// error and defaults to false. Decode never verifies the checksum;
// that is the caller's separate step.
func Decode(buf []byte) (*Message, error) {
	var env envelope
	_ = json.Unmarshal(buf, &env)

	var derr error
	m := &Message{}

	if env.Time != nil {
		m.Time = *env.Time
	} else {
		derr = errs.ErrMissingTimestamp
	}

	if env.Msg != nil {
		m.Msg = *env.Msg
	} else {
		derr = errs.ErrMissingPayload
	}

	if env.CRC != nil {
		m.CRC = *env.CRC
	} else {
		derr = errs.ErrMissingChecksum
	}

	if env.Join != nil {
		m.Join = *env.Join
	}

	if derr != nil {
		return nil, derr
	}
	return m, nil
}
