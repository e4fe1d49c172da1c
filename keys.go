package burnindex

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/errors"
)

// keyTag divides the key/value store into families by prefixing every key
// with a single byte. The values are a wire format: changing them breaks
// existing stores.
type keyTag byte

const (
	// burnCounterTag is the singleton BurnCounter key
	burnCounterTag keyTag = 0x00
	// totalBurnedTag is the singleton TotalBurned key
	totalBurnedTag keyTag = 0x01
	// historyTag prefixes one key-only record per burn, newest first
	historyTag keyTag = 0x02
	// addressTotalTag prefixes the running total of each burner
	addressTotalTag keyTag = 0x03
	// leaderboardTag prefixes one key-only rank record per burner, largest total first
	leaderboardTag keyTag = 0x04
)

// MaxIdentifierLen is the longest burner identifier the key schema can
// encode; its length travels in a single byte.
const MaxIdentifierLen = 255

// ErrMalformedKey marks a stored key that does not decode under its family's
// layout. Only this package writes keys, so it always indicates a bug.
var ErrMalformedKey = errors.New("malformed key")

func (t keyTag) prefix() []byte {
	return []byte{byte(t)}
}

// keyBuilder appends fields to a key in schema order.
type keyBuilder struct {
	buf []byte
}

func newKey(tag keyTag, sizeHint int) *keyBuilder {
	buf := make([]byte, 1, 1+sizeHint)
	buf[0] = byte(tag)
	return &keyBuilder{buf: buf}
}

func (b *keyBuilder) putUint64(v uint64) *keyBuilder {
	b.buf = binary.BigEndian.AppendUint64(b.buf, v)
	return b
}

// putInverted appends MaxUint64-v so larger values sort first.
func (b *keyBuilder) putInverted(v uint64) *keyBuilder {
	return b.putUint64(invert(v))
}

// putIdentifier appends a one-byte length followed by the identifier bytes.
// Identifiers longer than MaxIdentifierLen violate the caller contract.
func (b *keyBuilder) putIdentifier(id string) *keyBuilder {
	if len(id) > MaxIdentifierLen {
		panic(fmt.Sprintf("burner identifier of %d bytes exceeds %d", len(id), MaxIdentifierLen))
	}
	b.buf = append(b.buf, byte(len(id)))
	b.buf = append(b.buf, id...)
	return b
}

func (b *keyBuilder) bytes() []byte {
	return b.buf
}

// keyReader consumes fields from a key in schema order. The first failure
// sticks; check err() once all fields are read.
type keyReader struct {
	key    []byte
	off    int
	failed error
}

func readKey(key []byte, tag keyTag) *keyReader {
	r := &keyReader{key: key, off: 1}
	if len(key) == 0 || key[0] != byte(tag) {
		r.fail("expected tag 0x%02x", byte(tag))
	}
	return r
}

func (r *keyReader) fail(format string, args ...interface{}) {
	if r.failed == nil {
		r.failed = errors.Mark(
			errors.AssertionFailedf("key %x: "+format, append([]interface{}{r.key}, args...)...),
			ErrMalformedKey)
	}
}

func (r *keyReader) readUint64() uint64 {
	if r.failed != nil {
		return 0
	}
	if len(r.key)-r.off < Uint64Size {
		r.fail("truncated integer at offset %d", r.off)
		return 0
	}
	v := binary.BigEndian.Uint64(r.key[r.off:])
	r.off += Uint64Size
	return v
}

func (r *keyReader) readInverted() uint64 {
	return invert(r.readUint64())
}

func (r *keyReader) readIdentifier() string {
	if r.failed != nil {
		return ""
	}
	if r.off >= len(r.key) {
		r.fail("missing identifier length at offset %d", r.off)
		return ""
	}
	n := int(r.key[r.off])
	r.off++
	if len(r.key)-r.off < n {
		r.fail("identifier of %d bytes overruns key", n)
		return ""
	}
	id := string(r.key[r.off : r.off+n])
	r.off += n
	return id
}

// err reports the first decode failure, or trailing bytes left unread.
func (r *keyReader) err() error {
	if r.failed == nil && r.off != len(r.key) {
		r.fail("%d trailing bytes", len(r.key)-r.off)
	}
	return r.failed
}

// Key constructors. Callers outside this file never assemble keys by hand.

func counterKey() []byte {
	return burnCounterTag.prefix()
}

func totalKey() []byte {
	return totalBurnedTag.prefix()
}

// historyKey is tag | inv(sequenceID) | len(id) | id | amount.
func historyKey(sequenceID uint64, burner string, amount uint64) []byte {
	return newKey(historyTag, 2*Uint64Size+1+len(burner)).
		putInverted(sequenceID).
		putIdentifier(burner).
		putUint64(amount).
		bytes()
}

// addressTotalKey is tag | len(id) | id.
func addressTotalKey(burner string) []byte {
	return newKey(addressTotalTag, 1+len(burner)).
		putIdentifier(burner).
		bytes()
}

// leaderboardKey is tag | inv(total) | len(id) | id.
func leaderboardKey(total uint64, burner string) []byte {
	return newKey(leaderboardTag, Uint64Size+1+len(burner)).
		putInverted(total).
		putIdentifier(burner).
		bytes()
}

func decodeHistoryKey(key []byte) (HistoryEntry, error) {
	r := readKey(key, historyTag)
	e := HistoryEntry{
		SequenceID: r.readInverted(),
		Burner:     r.readIdentifier(),
		Amount:     r.readUint64(),
	}
	if err := r.err(); err != nil {
		return HistoryEntry{}, err
	}
	return e, nil
}

func decodeLeaderboardKey(key []byte) (burner string, total uint64, err error) {
	r := readKey(key, leaderboardTag)
	total = r.readInverted()
	burner = r.readIdentifier()
	if err := r.err(); err != nil {
		return "", 0, err
	}
	return burner, total, nil
}
