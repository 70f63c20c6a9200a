package mqttcore

// scratchLists backs the variable-length lists a decoded SUBSCRIBE, SUBACK
// or UNSUBSCRIBE packet needs (topic filters, return codes). Engine owns
// exactly one of these so decoding those three packet kinds never
// allocates; the resulting Packet's slices (Topics, ReturnCodes,
// TopicFilters) borrow it and are only valid until the next Feed call,
// same as the byte slices that borrow the inbound scratch buffer.
type scratchLists struct {
	topics  [maxSubscribeTopics]SubscribeTopic
	codes   [maxSubscribeTopics]SubackCode
	filters [maxUnsubscribeTopics][]byte
}

// parsePacket decodes a packet body (everything after the fixed header)
// given the already-decoded kind and fixed-header flags. body must be
// exactly the remaining-length slice; parsePacket never reads past it.
func parsePacket(kind PacketKind, flags byte, body []byte, s *scratchLists) (Packet, error) {
	if !kind.valid() {
		return Packet{}, ErrUnhandledPacket
	}
	if err := validateFlagNibble(kind, flags); err != nil {
		return Packet{}, err
	}
	switch kind {
	case Connect:
		return parseConnect(body)
	case Connack:
		return parseConnack(body)
	case Publish:
		return parsePublish(flags, body)
	case Puback, Pubrec, Pubrel, Pubcomp, Unsuback:
		return parseIdentifiedOnly(kind, body)
	case Subscribe:
		return parseSubscribe(body, s)
	case Suback:
		return parseSuback(body, s)
	case Unsubscribe:
		return parseUnsubscribe(body, s)
	case Pingreq:
		return Packet{Kind: Pingreq}, nil
	case Pingresp:
		return Packet{Kind: Pingresp}, nil
	case Disconnect:
		return Packet{Kind: Disconnect}, nil
	default:
		return Packet{}, ErrUnhandledPacket
	}
}

// validateFlagNibble checks the fixed-header flag nibble against the
// reserved-bit requirements in §4.1. PUBLISH carries its own DUP/QoS/RETAIN
// and is validated separately in parsePublish.
func validateFlagNibble(kind PacketKind, flags byte) error {
	if kind == Publish {
		return nil
	}
	if flags != kind.reservedFlagNibble() {
		return ErrReservedFlags
	}
	return nil
}

func parseConnect(body []byte) (Packet, error) {
	protocol, rest, err := takeMQTTString(body)
	if err != nil {
		return Packet{}, err
	}
	if string(protocol) != "MQTT" {
		return Packet{}, ErrInvalidProtocolName
	}
	level, rest, err := takeByte(rest)
	if err != nil {
		return Packet{}, err
	}
	if level != 4 {
		return Packet{}, ErrInvalidProtocolLevel
	}
	flags, rest, err := takeByte(rest)
	if err != nil {
		return Packet{}, err
	}
	keepAlive, rest, err := takeUint16(rest)
	if err != nil {
		return Packet{}, err
	}

	willFlag := flags&(1<<2) != 0
	willQoS := QoS((flags >> 3) & 0b11)
	willRetain := flags&(1<<5) != 0
	usernameFlag := flags&(1<<7) != 0
	passwordFlag := flags&(1<<6) != 0
	cleanSession := flags&(1<<1) != 0
	if willFlag && !willQoS.valid() {
		return Packet{}, ErrInvalidWillQoS
	}

	clientID, rest, err := takeMQTTString(rest)
	if err != nil {
		return Packet{}, err
	}

	p := Packet{
		Kind:         Connect,
		CleanSession: cleanSession,
		KeepAlive:    keepAlive,
		ClientID:     clientID,
	}

	if willFlag {
		willTopic, r2, err := takeMQTTString(rest)
		if err != nil {
			return Packet{}, err
		}
		willMessage, r3, err := takeMQTTString(r2)
		if err != nil {
			return Packet{}, err
		}
		rest = r3
		p.Will = &Will{Topic: willTopic, Message: willMessage, Retain: willRetain, QoS: willQoS}
	}

	if usernameFlag {
		username, r2, err := takeMQTTString(rest)
		if err != nil {
			return Packet{}, err
		}
		rest = r2
		p.Username = username
		if passwordFlag {
			password, r3, err := takeMQTTString(rest)
			if err != nil {
				return Packet{}, err
			}
			rest = r3
			p.Password = password
		}
	}
	return p, nil
}

func parseConnack(body []byte) (Packet, error) {
	ackFlags, rest, err := takeByte(body)
	if err != nil {
		return Packet{}, err
	}
	rc, _, err := takeByte(rest)
	if err != nil {
		return Packet{}, err
	}
	if !ConnectReturnCode(rc).valid() {
		return Packet{}, ErrInvalidReturnCode
	}
	return Packet{
		Kind:           Connack,
		SessionPresent: ackFlags&1 != 0,
		ReturnCode:     ConnectReturnCode(rc),
	}, nil
}

func parsePublish(flags byte, body []byte) (Packet, error) {
	qos := QoS((flags >> 1) & 0b11)
	if !qos.valid() {
		return Packet{}, ErrInvalidQoS
	}
	topic, rest, err := takeMQTTString(body)
	if err != nil {
		return Packet{}, err
	}
	p := Packet{
		Kind:      Publish,
		Duplicate: flags&(1<<3) != 0,
		QoS:       qos,
		Retain:    flags&1 != 0,
		Topic:     topic,
	}
	if qos != QoS0 {
		pid, r2, err := takeUint16(rest)
		if err != nil {
			return Packet{}, err
		}
		p.PacketID = pid
		rest = r2
	}
	p.Payload = rest
	return p, nil
}

func parseIdentifiedOnly(kind PacketKind, body []byte) (Packet, error) {
	pid, _, err := takeUint16(body)
	if err != nil {
		return Packet{}, err
	}
	return Packet{Kind: kind, PacketID: pid}, nil
}

func parseSubscribe(body []byte, s *scratchLists) (Packet, error) {
	pid, rest, err := takeUint16(body)
	if err != nil {
		return Packet{}, err
	}
	topics := s.topics[:0]
	for len(rest) > 0 {
		filter, r2, err := takeMQTTString(rest)
		if err != nil {
			return Packet{}, err
		}
		qosByte, r3, err := takeByte(r2)
		if err != nil {
			return Packet{}, err
		}
		qos := QoS(qosByte)
		if !qos.valid() {
			return Packet{}, ErrInvalidQoS
		}
		if len(topics) == cap(topics) {
			return Packet{}, ErrOutOfMemory
		}
		topics = append(topics, SubscribeTopic{Filter: filter, QoS: qos})
		rest = r3
	}
	if len(topics) == 0 {
		return Packet{}, ErrEmptyTopics
	}
	return Packet{Kind: Subscribe, PacketID: pid, Topics: topics}, nil
}

func parseSuback(body []byte, s *scratchLists) (Packet, error) {
	pid, rest, err := takeUint16(body)
	if err != nil {
		return Packet{}, err
	}
	codes := s.codes[:0]
	for len(rest) > 0 {
		raw, r2, err := takeByte(rest)
		if err != nil {
			return Packet{}, err
		}
		code := SubackCode(raw)
		if !code.valid() {
			return Packet{}, ErrInvalidReturnCode
		}
		if len(codes) == cap(codes) {
			return Packet{}, ErrOutOfMemory
		}
		codes = append(codes, code)
		rest = r2
	}
	return Packet{Kind: Suback, PacketID: pid, ReturnCodes: codes}, nil
}

func parseUnsubscribe(body []byte, s *scratchLists) (Packet, error) {
	pid, rest, err := takeUint16(body)
	if err != nil {
		return Packet{}, err
	}
	filters := s.filters[:0]
	for len(rest) > 0 {
		filter, r2, err := takeMQTTString(rest)
		if err != nil {
			return Packet{}, err
		}
		if len(filters) == cap(filters) {
			return Packet{}, ErrOutOfMemory
		}
		filters = append(filters, filter)
		rest = r2
	}
	if len(filters) == 0 {
		return Packet{}, ErrEmptyTopicFilters
	}
	return Packet{Kind: Unsubscribe, PacketID: pid, TopicFilters: filters}, nil
}
