// Package checksum implements the single-byte XOR-fold integrity
// check applied to datagram payloads. It is a fast corruption
// tripwire, not a cryptographic digest: flips that cancel in the
// same bit position go undetected.
package checksum

// Compute folds every payload byte into an 8-bit accumulator.
// The empty payload yields 0.
func Compute(payload string) uint8 {
	var sum uint8
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	return sum
}

// Verify reports whether claimed matches the payload's checksum.
// The claimed value arrives on the wire as a wider integer; only
// an exact match with the 8-bit fold is accepted.
func Verify(payload string, claimed uint32) bool {
	return uint32(Compute(payload)) == claimed
}
