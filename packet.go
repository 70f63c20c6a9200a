package mqttcore

// maxSubscribeTopics and maxUnsubscribeTopics bound how many topic
// filters a single SUBSCRIBE/UNSUBSCRIBE/SUBACK body can carry before
// the decoder gives up reserving backing storage for them. They are sized
// generously for typical embedded use; Engine owns the backing arrays so
// decoding never allocates.
const (
	maxSubscribeTopics   = 32
	maxUnsubscribeTopics = 32
)

// Will describes the message a broker publishes on a client's behalf if the
// client disconnects unexpectedly. Present on a CONNECT Packet only when the
// client registered one.
type Will struct {
	Topic   []byte
	Message []byte
	Retain  bool
	QoS     QoS
}

// SubscribeTopic is one filter/QoS pair inside a SUBSCRIBE packet.
type SubscribeTopic struct {
	Filter []byte
	QoS    QoS
}

// Packet is the tagged union of every MQTT 3.1.1 control packet. Which
// fields are meaningful is determined entirely by Kind, matching the
// payload table in the protocol: it is a flat discriminated union rather
// than a family of concrete types behind an interface, so decoding never
// needs to box a payload value on the heap. Byte slices (ClientID, Topic,
// Payload, Username, Password, Will.Topic, Will.Message, filters inside
// Topics/TopicFilters) borrow the engine's inbound scratch buffer when the
// Packet was produced by Engine.Feed, and are only valid until the next
// Feed call.
type Packet struct {
	Kind PacketKind

	// CONNECT
	CleanSession bool
	KeepAlive    uint16
	ClientID     []byte
	Will         *Will
	Username     []byte
	Password     []byte

	// CONNACK
	SessionPresent bool
	ReturnCode     ConnectReturnCode

	// PUBLISH
	Duplicate bool
	QoS       QoS
	Retain    bool
	Topic     []byte
	Payload   []byte

	// PUBACK / PUBREC / PUBREL / PUBCOMP / UNSUBACK / SUBACK / SUBSCRIBE /
	// UNSUBSCRIBE all carry a packet identifier; PUBLISH carries one iff
	// QoS != 0.
	PacketID uint16

	// SUBSCRIBE
	Topics []SubscribeTopic

	// SUBACK
	ReturnCodes []SubackCode

	// UNSUBSCRIBE
	TopicFilters [][]byte
}

// hasPacketID reports whether p's kind carries a packet identifier given
// its current fields. PUBLISH only carries one at QoS 1 or 2.
func (p *Packet) hasPacketID() bool {
	switch p.Kind {
	case Publish:
		return p.QoS != QoS0
	case Puback, Pubrec, Pubrel, Pubcomp, Unsuback, Subscribe, Suback, Unsubscribe:
		return true
	default:
		return false
	}
}

// fixedHeaderFlags computes the 4-bit flag nibble required for p's kind, per
// the wire rules in §4.1: PUBLISH packs DUP/QoS/RETAIN; PUBREL/SUBSCRIBE/
// UNSUBSCRIBE are reserved to 0b0010; everything else is 0b0000.
func (p *Packet) fixedHeaderFlags() byte {
	if p.Kind == Publish {
		return b2u8(p.Duplicate)<<3 | byte(p.QoS)<<1 | b2u8(p.Retain)
	}
	return p.Kind.reservedFlagNibble()
}

func b2u8(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// connectFlagsByte packs CONNECT's single flags byte per the bit layout in
// §4.1: reserved(1)=0, clean_session, will_flag, will_qos(2), will_retain,
// password_flag, username_flag, LSB to MSB.
func (p *Packet) connectFlagsByte() byte {
	hasUsername := len(p.Username) > 0
	hasPassword := hasUsername && len(p.Password) > 0
	hasWill := p.Will != nil
	var willQoS, willRetain byte
	if hasWill {
		willQoS = byte(p.Will.QoS & 0b11)
		willRetain = b2u8(p.Will.Retain)
	}
	return b2u8(hasUsername)<<7 | b2u8(hasPassword)<<6 | willRetain<<5 |
		willQoS<<3 | b2u8(hasWill)<<2 | b2u8(p.CleanSession)<<1
}
