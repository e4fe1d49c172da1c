package burnindex

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// Uint64Size is the encoded width of every integer field in the key schema.
const Uint64Size = 8

// EncodeUint64 encodes n as 8 big-endian bytes. Byte-wise comparison of two
// encodings matches numeric comparison of the integers.
func EncodeUint64(n uint64) []byte {
	buf := make([]byte, Uint64Size)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

// DecodeUint64 decodes 8 big-endian bytes; any other length is rejected.
func DecodeUint64(data []byte) (uint64, error) {
	if len(data) != Uint64Size {
		return 0, errors.Newf("invalid uint64 data length: %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// invert maps v to MaxUint64-v, turning ascending byte order of the encoding
// into descending order of v. It is its own inverse.
func invert(v uint64) uint64 {
	return math.MaxUint64 - v
}
