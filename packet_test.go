package mqttcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, p Packet) Packet {
	t.Helper()
	n, err := SerializedLength(&p)
	require.NoError(t, err)

	buf := make([]byte, n)
	written, err := Serialize(&p, buf)
	require.NoError(t, err)
	assert.Equal(t, int(n), written)

	kind := PacketKind(buf[0] >> 4)
	flags := buf[0] & 0x0f
	body, nbytes, err := decodeRemainingLength(buf[1:])
	require.NoError(t, err)
	bodyStart := 1 + nbytes

	var s scratchLists
	got, err := parsePacket(kind, flags, buf[bodyStart:bodyStart+int(body)], &s)
	require.NoError(t, err)
	return got
}

func TestConnectRoundTrip(t *testing.T) {
	p := Packet{
		Kind:         Connect,
		CleanSession: true,
		KeepAlive:    60,
		ClientID:     []byte("client-1"),
		Will:         &Will{Topic: []byte("lwt/topic"), Message: []byte("bye"), QoS: QoS1, Retain: true},
		Username:     []byte("alice"),
		Password:     []byte("s3cret"),
	}
	got := roundTrip(t, p)
	assert.Equal(t, Connect, got.Kind)
	assert.True(t, got.CleanSession)
	assert.EqualValues(t, 60, got.KeepAlive)
	assert.Equal(t, "client-1", string(got.ClientID))
	require.NotNil(t, got.Will)
	assert.Equal(t, "lwt/topic", string(got.Will.Topic))
	assert.Equal(t, "bye", string(got.Will.Message))
	assert.Equal(t, QoS1, got.Will.QoS)
	assert.True(t, got.Will.Retain)
	assert.Equal(t, "alice", string(got.Username))
	assert.Equal(t, "s3cret", string(got.Password))
}

func TestConnectWithoutWillOrCredentials(t *testing.T) {
	p := Packet{Kind: Connect, KeepAlive: 30, ClientID: []byte("c")}
	got := roundTrip(t, p)
	assert.Nil(t, got.Will)
	assert.Empty(t, got.Username)
	assert.Empty(t, got.Password)
}

func TestConnectFlagsByteLayout(t *testing.T) {
	p := Packet{
		Kind:         Connect,
		CleanSession: true,
		Will:         &Will{QoS: QoS2, Retain: true},
		Username:     []byte("u"),
		Password:     []byte("p"),
	}
	// bit7 username, bit6 password, bit5 will_retain, bits4-3 will_qos,
	// bit2 will_flag, bit1 clean_session, bit0 reserved.
	want := byte(1<<7 | 1<<6 | 1<<5 | 2<<3 | 1<<2 | 1<<1)
	assert.Equal(t, want, p.connectFlagsByte())
}

func TestPublishQoS0HasNoPacketID(t *testing.T) {
	p := Packet{Kind: Publish, QoS: QoS0, Topic: []byte("a/b"), Payload: []byte("hi")}
	got := roundTrip(t, p)
	assert.EqualValues(t, 0, got.PacketID)
	assert.Equal(t, "hi", string(got.Payload))
}

func TestPublishQoS1CarriesPacketID(t *testing.T) {
	p := Packet{Kind: Publish, QoS: QoS1, PacketID: 42, Retain: true, Duplicate: true, Topic: []byte("a/b"), Payload: []byte("hi")}
	got := roundTrip(t, p)
	assert.EqualValues(t, 42, got.PacketID)
	assert.True(t, got.Retain)
	assert.True(t, got.Duplicate)
}

func TestSubscribeRoundTrip(t *testing.T) {
	p := Packet{
		Kind:     Subscribe,
		PacketID: 7,
		Topics: []SubscribeTopic{
			{Filter: []byte("a/#"), QoS: QoS1},
			{Filter: []byte("b/+/c"), QoS: QoS2},
		},
	}
	got := roundTrip(t, p)
	assert.EqualValues(t, 7, got.PacketID)
	require.Len(t, got.Topics, 2)
	assert.Equal(t, "a/#", string(got.Topics[0].Filter))
	assert.Equal(t, QoS1, got.Topics[0].QoS)
	assert.Equal(t, QoS2, got.Topics[1].QoS)
}

func TestSubscribeEmptyTopicsRejectedOnEncode(t *testing.T) {
	p := Packet{Kind: Subscribe, PacketID: 1}
	_, err := SerializedLength(&p)
	assert.ErrorIs(t, err, ErrEmptyTopics)
}

func TestUnsubscribeEmptyTopicFiltersRejectedOnEncode(t *testing.T) {
	p := Packet{Kind: Unsubscribe, PacketID: 1}
	_, err := SerializedLength(&p)
	assert.ErrorIs(t, err, ErrEmptyTopicFilters)
}

func TestSubackRoundTrip(t *testing.T) {
	p := Packet{Kind: Suback, PacketID: 9, ReturnCodes: []SubackCode{SubackSuccessQoS1, SubackFailure}}
	got := roundTrip(t, p)
	require.Len(t, got.ReturnCodes, 2)
	assert.Equal(t, SubackSuccessQoS1, got.ReturnCodes[0])
	assert.True(t, got.ReturnCodes[1].Failed())
}

func TestPingreqHasEmptyBody(t *testing.T) {
	p := Packet{Kind: Pingreq}
	n, err := SerializedLength(&p)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n) // 1 fixed header byte + 1 remaining-length byte (0)
}

func TestParsePacketRejectsBadReservedFlags(t *testing.T) {
	var s scratchLists
	_, err := parsePacket(Pubrel, 0b0000, []byte{0x00, 0x01}, &s)
	assert.ErrorIs(t, err, ErrReservedFlags)
}

func TestParseConnectRejectsWrongProtocolName(t *testing.T) {
	buf := make([]byte, 64)
	w := newBufWriter(buf)
	require.NoError(t, w.putMQTTString([]byte("MQTP")))
	require.NoError(t, w.putByte(4))
	require.NoError(t, w.putByte(0))
	require.NoError(t, w.putUint16(30))
	require.NoError(t, w.putMQTTString([]byte("c")))

	var s scratchLists
	_, err := parsePacket(Connect, 0, w.Bytes(), &s)
	assert.ErrorIs(t, err, ErrInvalidProtocolName)
}

func TestParseConnectRejectsWrongProtocolLevel(t *testing.T) {
	buf := make([]byte, 64)
	w := newBufWriter(buf)
	require.NoError(t, w.putMQTTString([]byte("MQTT")))
	require.NoError(t, w.putByte(3))
	require.NoError(t, w.putByte(0))
	require.NoError(t, w.putUint16(30))
	require.NoError(t, w.putMQTTString([]byte("c")))

	var s scratchLists
	_, err := parsePacket(Connect, 0, w.Bytes(), &s)
	assert.ErrorIs(t, err, ErrInvalidProtocolLevel)
}
