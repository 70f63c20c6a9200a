package mqttcore

// CoreError is implemented by every sentinel error the codec and engine can
// surface, so a host can discriminate on the taxonomy with errors.As instead
// of a type switch on concrete error values:
//
//	var coreErr mqttcore.CoreError
//	if errors.As(err, &coreErr) { ... }
type CoreError interface {
	error
	coreError()
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }
func (e sentinelError) coreError()    {}

// Error taxonomy. These never change identity when wrapped by the API layer
// (§4.5): errors.Is still matches the sentinel after pkg/errors.Wrap.
const (
	// ErrInvalidLength: remaining-length encodes to >=2^28 on encode, or the
	// decoder saw more than 3 continuation bytes.
	ErrInvalidLength = sentinelError("mqttcore: invalid remaining length")
	// ErrOutOfMemory: an inbound packet body exceeds the inbound scratch
	// buffer's capacity, or a decoded SUBSCRIBE, SUBACK or UNSUBSCRIBE
	// carries more entries than the decoder's fixed list storage holds.
	ErrOutOfMemory = sentinelError("mqttcore: packet body exceeds inbound buffer")
	// ErrInvalidProtocolName: CONNECT protocol name is not "MQTT".
	ErrInvalidProtocolName = sentinelError("mqttcore: invalid protocol name")
	// ErrInvalidProtocolLevel: CONNECT protocol level byte is not 4.
	ErrInvalidProtocolLevel = sentinelError("mqttcore: invalid protocol level")
	// ErrInvalidQoS: a PUBLISH or SUBSCRIBE entry carries the reserved QoS
	// value 3.
	ErrInvalidQoS = sentinelError("mqttcore: invalid QoS value")
	// ErrInvalidWillQoS: CONNECT will flags carry the reserved QoS value 3.
	ErrInvalidWillQoS = sentinelError("mqttcore: invalid will QoS value")
	// ErrInvalidReturnCode: a SUBACK byte is not in {0,1,2,0x80}.
	ErrInvalidReturnCode = sentinelError("mqttcore: invalid SUBACK return code")
	// ErrEmptyTopics: a SUBSCRIBE packet carries zero topic filters.
	ErrEmptyTopics = sentinelError("mqttcore: SUBSCRIBE with no topic filters")
	// ErrEmptyTopicFilters: an UNSUBSCRIBE packet carries zero topic filters.
	ErrEmptyTopicFilters = sentinelError("mqttcore: UNSUBSCRIBE with no topic filters")
	// ErrUnexpectedEndOfInput: the body slice ended before a field could be
	// fully read.
	ErrUnexpectedEndOfInput = sentinelError("mqttcore: unexpected end of input")
	// ErrUnhandledPacket: the fixed header carries a reserved packet kind
	// (0 or 15), or Serialize was given a Packet of such a kind. The
	// direction of a packet is not checked: a kind a client never receives
	// from a broker, such as CONNECT, is parsed and delivered like any other.
	ErrUnhandledPacket = sentinelError("mqttcore: unhandled packet kind for this direction")
	// ErrNoClock: the host did not supply a usable monotonic clock at
	// construction.
	ErrNoClock = sentinelError("mqttcore: no monotonic clock source")
	// ErrTooBig: a packet's serialized form would exceed the maximum
	// remaining-length the protocol allows, or would not fit the outbound
	// buffer.
	ErrTooBig = sentinelError("mqttcore: packet too large to serialize")
	// ErrReservedFlags: the fixed-header flag nibble doesn't match what the
	// protocol reserves for this packet kind.
	ErrReservedFlags = sentinelError("mqttcore: malformed reserved flag bits")
)
