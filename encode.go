package mqttcore

// SerializedLength returns the number of bytes Serialize would write for p,
// including the fixed header. It returns ErrTooBig if the body would exceed
// the protocol's maximum remaining-length.
func SerializedLength(p *Packet) (uint32, error) {
	bodyLen, err := bodyLength(p)
	if err != nil {
		return 0, err
	}
	if bodyLen > maxRemainingLength {
		return 0, ErrTooBig
	}
	return uint32(1+sizeofRemainingLength(uint32(bodyLen))) + uint32(bodyLen), nil
}

// Serialize encodes p, fixed header included, into dst and returns the
// number of bytes written. It precomputes the remaining-length so the fixed
// header is written once without a second pass over dst, per §4.1. It
// returns ErrTooBig if dst is too small or the body exceeds the protocol's
// maximum remaining-length.
func Serialize(p *Packet, dst []byte) (int, error) {
	bodyLen, err := bodyLength(p)
	if err != nil {
		return 0, err
	}
	if bodyLen > maxRemainingLength {
		return 0, ErrTooBig
	}
	w := newBufWriter(dst)
	if err := w.putByte(byte(p.Kind)<<4 | p.fixedHeaderFlags()); err != nil {
		return 0, err
	}
	if err := w.putRemainingLengthField(uint32(bodyLen)); err != nil {
		return 0, err
	}
	if err := encodeBody(w, p); err != nil {
		return 0, err
	}
	return w.Len(), nil
}

// bodyLength returns the remaining-length value for p: everything after the
// fixed header.
func bodyLength(p *Packet) (int, error) {
	switch p.Kind {
	case Connect:
		n := sizeofMQTTString([]byte("MQTT")) + 1 /*level*/ + 1 /*flags*/ + 2 /*keepalive*/
		n += sizeofMQTTString(p.ClientID)
		if p.Will != nil {
			n += sizeofMQTTString(p.Will.Topic) + sizeofMQTTString(p.Will.Message)
		}
		if len(p.Username) > 0 {
			n += sizeofMQTTString(p.Username)
			if len(p.Password) > 0 {
				n += sizeofMQTTString(p.Password)
			}
		}
		return n, nil
	case Connack:
		return 2, nil
	case Publish:
		n := sizeofMQTTString(p.Topic)
		if p.QoS != QoS0 {
			n += 2
		}
		n += len(p.Payload)
		return n, nil
	case Puback, Pubrec, Pubrel, Pubcomp, Unsuback:
		return 2, nil
	case Subscribe:
		if len(p.Topics) == 0 {
			return 0, ErrEmptyTopics
		}
		n := 2
		for _, t := range p.Topics {
			n += sizeofMQTTString(t.Filter) + 1
		}
		return n, nil
	case Suback:
		return 2 + len(p.ReturnCodes), nil
	case Unsubscribe:
		if len(p.TopicFilters) == 0 {
			return 0, ErrEmptyTopicFilters
		}
		n := 2
		for _, f := range p.TopicFilters {
			n += sizeofMQTTString(f)
		}
		return n, nil
	case Pingreq, Pingresp, Disconnect:
		return 0, nil
	default:
		return 0, ErrUnhandledPacket
	}
}

func encodeBody(w *bufWriter, p *Packet) error {
	switch p.Kind {
	case Connect:
		return encodeConnectBody(w, p)
	case Connack:
		var ack byte
		if p.SessionPresent {
			ack = 1
		}
		if err := w.putByte(ack); err != nil {
			return err
		}
		return w.putByte(byte(p.ReturnCode))
	case Publish:
		if err := w.putMQTTString(p.Topic); err != nil {
			return err
		}
		if p.QoS != QoS0 {
			if err := w.putUint16(p.PacketID); err != nil {
				return err
			}
		}
		return w.putBytes(p.Payload)
	case Puback, Pubrec, Pubrel, Pubcomp, Unsuback:
		return w.putUint16(p.PacketID)
	case Subscribe:
		if len(p.Topics) == 0 {
			return ErrEmptyTopics
		}
		if err := w.putUint16(p.PacketID); err != nil {
			return err
		}
		for _, t := range p.Topics {
			if err := w.putMQTTString(t.Filter); err != nil {
				return err
			}
			if err := w.putByte(byte(t.QoS)); err != nil {
				return err
			}
		}
		return nil
	case Suback:
		if err := w.putUint16(p.PacketID); err != nil {
			return err
		}
		for _, rc := range p.ReturnCodes {
			if err := w.putByte(byte(rc)); err != nil {
				return err
			}
		}
		return nil
	case Unsubscribe:
		if len(p.TopicFilters) == 0 {
			return ErrEmptyTopicFilters
		}
		if err := w.putUint16(p.PacketID); err != nil {
			return err
		}
		for _, f := range p.TopicFilters {
			if err := w.putMQTTString(f); err != nil {
				return err
			}
		}
		return nil
	case Pingreq, Pingresp, Disconnect:
		return nil
	default:
		return ErrUnhandledPacket
	}
}

// encodeConnectBody writes the CONNECT variable header and payload in the
// field order mandated by §4.1: protocol name, level, flags, keepalive,
// client_id, will_topic, will_message, username, password.
func encodeConnectBody(w *bufWriter, p *Packet) error {
	if err := w.putMQTTString([]byte("MQTT")); err != nil {
		return err
	}
	if err := w.putByte(4); err != nil {
		return err
	}
	if err := w.putByte(p.connectFlagsByte()); err != nil {
		return err
	}
	if err := w.putUint16(p.KeepAlive); err != nil {
		return err
	}
	if err := w.putMQTTString(p.ClientID); err != nil {
		return err
	}
	if p.Will != nil {
		if err := w.putMQTTString(p.Will.Topic); err != nil {
			return err
		}
		if err := w.putMQTTString(p.Will.Message); err != nil {
			return err
		}
	}
	if len(p.Username) > 0 {
		if err := w.putMQTTString(p.Username); err != nil {
			return err
		}
		if len(p.Password) > 0 {
			if err := w.putMQTTString(p.Password); err != nil {
				return err
			}
		}
	}
	return nil
}
