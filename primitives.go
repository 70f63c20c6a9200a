package mqttcore

import "encoding/binary"

// maxRemainingLength is the largest value the 1-4 byte variable-length
// integer scheme can encode: 0x0FFFFFFF, i.e. 268,435,455.
const maxRemainingLength = 268_435_455

// maxRemainingLengthBytes is the widest the encoded remaining-length field
// can be.
const maxRemainingLengthBytes = 4

// putRemainingLength encodes remlen as 1-4 bytes of 7-bit groups with a
// continuation bit, writing into dst and returning the number of bytes
// written. dst must have at least maxRemainingLengthBytes of room. remlen
// greater than maxRemainingLength is a caller bug, not a wire error -
// callers must check before calling.
func putRemainingLength(remlen uint32, dst []byte) (n int) {
	for {
		b := byte(remlen % 128)
		remlen /= 128
		if remlen > 0 {
			b |= 0x80
		}
		dst[n] = b
		n++
		if remlen == 0 {
			return n
		}
	}
}

// decodeRemainingLength reads the variable-length remaining-length field
// from the front of b, returning the decoded value and the number of bytes
// consumed. It rejects with ErrInvalidLength an encoding whose 4th byte
// still has its continuation bit set (more than 3 continuation bytes) and
// returns ErrUnexpectedEndOfInput if b runs out first.
func decodeRemainingLength(b []byte) (value uint32, n int, err error) {
	multiplier := uint32(1)
	for n = 0; n < maxRemainingLengthBytes; n++ {
		if n >= len(b) {
			return 0, n, ErrUnexpectedEndOfInput
		}
		enc := b[n]
		value += uint32(enc&0x7f) * multiplier
		if enc&0x80 == 0 {
			return value, n + 1, nil
		}
		multiplier *= 128
	}
	return 0, n, ErrInvalidLength
}

// takeUint16 reads a big-endian uint16 from the front of b.
func takeUint16(b []byte) (value uint16, rest []byte, err error) {
	if len(b) < 2 {
		return 0, b, ErrUnexpectedEndOfInput
	}
	return binary.BigEndian.Uint16(b), b[2:], nil
}

// takeByte reads a single byte from the front of b.
func takeByte(b []byte) (value byte, rest []byte, err error) {
	if len(b) < 1 {
		return 0, b, ErrUnexpectedEndOfInput
	}
	return b[0], b[1:], nil
}

// takeMQTTString reads a 2-byte big-endian length followed by that many
// bytes from the front of b. The returned slice borrows b's backing array;
// it is not copied. A zero-length string is valid on decode, as it is on
// encode through putMQTTString.
func takeMQTTString(b []byte) (s []byte, rest []byte, err error) {
	strlen, rest, err := takeUint16(b)
	if err != nil {
		return nil, b, err
	}
	if int(strlen) > len(rest) {
		return nil, b, ErrUnexpectedEndOfInput
	}
	return rest[:strlen], rest[strlen:], nil
}

// bufWriter is a bounded big-endian writer over a fixed caller-provided byte
// region. It never grows; writes past capacity fail with ErrTooBig instead
// of allocating, which is how the codec stays allocation-free when
// serializing into the engine's outbound scratch buffer.
type bufWriter struct {
	buf []byte
	n   int
}

func newBufWriter(buf []byte) *bufWriter { return &bufWriter{buf: buf} }

// Len returns the number of bytes written so far.
func (w *bufWriter) Len() int { return w.n }

// Bytes returns the written prefix of the underlying buffer.
func (w *bufWriter) Bytes() []byte { return w.buf[:w.n] }

func (w *bufWriter) putByte(b byte) error {
	if w.n+1 > len(w.buf) {
		return ErrTooBig
	}
	w.buf[w.n] = b
	w.n++
	return nil
}

func (w *bufWriter) putUint16(v uint16) error {
	if w.n+2 > len(w.buf) {
		return ErrTooBig
	}
	binary.BigEndian.PutUint16(w.buf[w.n:], v)
	w.n += 2
	return nil
}

func (w *bufWriter) putBytes(b []byte) error {
	if w.n+len(b) > len(w.buf) {
		return ErrTooBig
	}
	copy(w.buf[w.n:], b)
	w.n += len(b)
	return nil
}

// putMQTTString writes a 2-byte big-endian length followed by s.
func (w *bufWriter) putMQTTString(s []byte) error {
	if len(s) > 0xffff {
		return ErrTooBig
	}
	if err := w.putUint16(uint16(len(s))); err != nil {
		return err
	}
	return w.putBytes(s)
}

// putRemainingLengthField writes remlen in the 1-4 byte variable-length scheme.
func (w *bufWriter) putRemainingLengthField(remlen uint32) error {
	if remlen > maxRemainingLength {
		return ErrInvalidLength
	}
	var tmp [maxRemainingLengthBytes]byte
	n := putRemainingLength(remlen, tmp[:])
	return w.putBytes(tmp[:n])
}

// sizeofRemainingLength returns how many bytes the variable-length encoding
// of remlen occupies, without writing anything. Used to precompute the
// fixed header so it can be written in a single pass per §4.1.
func sizeofRemainingLength(remlen uint32) int {
	switch {
	case remlen <= 0x7f:
		return 1
	case remlen <= 0x3fff:
		return 2
	case remlen <= 0x1f_ffff:
		return 3
	default:
		return 4
	}
}

// sizeofMQTTString returns the on-wire size of an MQTT string: 2 length
// bytes plus the string's own length.
func sizeofMQTTString(b []byte) int { return 2 + len(b) }
