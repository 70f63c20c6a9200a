package mqttcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemainingLengthRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, maxRemainingLength}
	for _, v := range cases {
		var buf [maxRemainingLengthBytes]byte
		n := putRemainingLength(v, buf[:])
		assert.Equal(t, sizeofRemainingLength(v), n)

		got, consumed, err := decodeRemainingLength(buf[:n])
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, n, consumed)
	}
}

func TestRemainingLengthEncodedByteCounts(t *testing.T) {
	assert.Equal(t, 1, sizeofRemainingLength(0))
	assert.Equal(t, 1, sizeofRemainingLength(127))
	assert.Equal(t, 2, sizeofRemainingLength(128))
	assert.Equal(t, 2, sizeofRemainingLength(16383))
	assert.Equal(t, 3, sizeofRemainingLength(16384))
	assert.Equal(t, 3, sizeofRemainingLength(2097151))
	assert.Equal(t, 4, sizeofRemainingLength(2097152))
	assert.Equal(t, 4, sizeofRemainingLength(maxRemainingLength))
}

func TestDecodeRemainingLengthRejectsFiveByteEncoding(t *testing.T) {
	b := []byte{0xff, 0xff, 0xff, 0xff, 0x01}
	_, _, err := decodeRemainingLength(b)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestDecodeRemainingLengthShortInput(t *testing.T) {
	b := []byte{0x80, 0x80}
	_, _, err := decodeRemainingLength(b)
	assert.ErrorIs(t, err, ErrUnexpectedEndOfInput)
}

func TestTakeMQTTStringBorrowsUnderlyingArray(t *testing.T) {
	raw := []byte{0x00, 0x03, 'f', 'o', 'o', 0xaa}
	s, rest, err := takeMQTTString(raw)
	require.NoError(t, err)
	assert.Equal(t, "foo", string(s))
	assert.Equal(t, []byte{0xaa}, rest)

	// borrowing, not copying: mutating raw mutates s.
	raw[2] = 'b'
	assert.Equal(t, "boo", string(s))
}

func TestTakeMQTTStringShortInput(t *testing.T) {
	_, _, err := takeMQTTString([]byte{0x00, 0x05, 'h', 'i'})
	assert.ErrorIs(t, err, ErrUnexpectedEndOfInput)
}

func TestBufWriterBoundedNoAllocationOnOverflow(t *testing.T) {
	dst := make([]byte, 3)
	w := newBufWriter(dst)
	require.NoError(t, w.putByte(1))
	require.NoError(t, w.putUint16(2))
	err := w.putByte(3)
	assert.ErrorIs(t, err, ErrTooBig)
	assert.Equal(t, 3, w.Len())
}

func TestPutMQTTStringRoundTrip(t *testing.T) {
	dst := make([]byte, 16)
	w := newBufWriter(dst)
	require.NoError(t, w.putMQTTString([]byte("hello")))

	s, rest, err := takeMQTTString(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(s))
	assert.Empty(t, rest)
}
