package mqttcore

import "time"

// Clock supplies the monotonic time source the engine uses for keepalive
// timing. The host is expected to pass something backed by time.Now or an
// equivalent monotonic source; a clock that doesn't advance will simply
// never trigger a keepalive PINGREQ.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock backed by the standard library's monotonic clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// EventKind discriminates the variant carried by an Event.
type EventKind uint8

const (
	// EventNone: input fully consumed, nothing to report.
	EventNone EventKind = iota
	// EventIncomingPacket: a complete packet was parsed. Its byte slices
	// borrow the inbound scratch buffer and are valid only until the next
	// Feed call.
	EventIncomingPacket
	// EventOutgoingBuf: the host must write Event.Outgoing to the
	// transport. The outbound scratch buffer is considered reset as soon
	// as this event is returned.
	EventOutgoingBuf
	// EventErr: a non-fatal error. Consumed still reflects bytes advanced
	// before the error; the engine recovers and continues framing on the
	// next Feed call.
	EventErr
)

// Event is the result of one Engine.Feed call. Exactly one of Packet,
// Outgoing or Err is meaningful, selected by Kind.
type Event struct {
	Kind     EventKind
	Consumed int
	Packet   Packet
	Outgoing []byte
	Err      error
}

// parseState is the inbound state machine's current state, per §4.2.
type parseState uint8

const (
	stateParseTypeAndFlags parseState = iota
	stateParseRemainingLength
	stateAccumulateMessage
	stateDiscardMessage
)

// Engine is the sans-I/O session core: it owns the inbound parse state
// machine, the outbound byte buffer, the keepalive deadline and the QoS 2
// receiver set. It performs no I/O and, after construction, no heap
// allocation: it carries the two caller-provided byte buffers plus a
// fixed-size receiver-state table and the fixed list storage used when
// decoding SUBSCRIBE, SUBACK and UNSUBSCRIBE.
type Engine struct {
	inbound  []byte
	outbound []byte
	outLen   int

	clock        Clock
	lastOutgoing time.Time
	keepalive    time.Duration // 0 disables keepalive

	st               parseState
	curKind          PacketKind
	curFlags         byte
	remLen           uint32
	remLenMultiplier uint32
	remLenNBytes     int
	accumulated      int

	scratch scratchLists
	pending pendingSet
}

// EngineOption configures optional Engine construction parameters.
type EngineOption func(*Engine)

// WithPendingCapacity overrides the QoS 2 receiver-state table size (default
// 128, see Design Notes). A full table suppresses delivery rather than
// evicting, so hosts expecting many concurrent in-flight QoS 2 deliveries
// from a single broker should raise this.
func WithPendingCapacity(n int) EngineOption {
	return func(e *Engine) { e.pending = newPendingSet(n) }
}

// NewEngine constructs an Engine over caller-provided inbound and outbound
// scratch buffers and a monotonic clock source. It returns ErrNoClock if
// clock is nil.
func NewEngine(inbound, outbound []byte, clock Clock, opts ...EngineOption) (*Engine, error) {
	if clock == nil {
		return nil, ErrNoClock
	}
	e := &Engine{
		inbound:      inbound,
		outbound:     outbound,
		clock:        clock,
		lastOutgoing: clock.Now(),
		pending:      newPendingSet(defaultPendingCapacity),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SetKeepalive arms (or disarms, with 0) the keepalive interval. It is
// called by the application layer (§4.3) when a CONNECT records the
// negotiated keepalive; Engine itself never inspects CONNECT packets to
// learn it, since CONNECT is only one way a host might establish one.
func (e *Engine) SetKeepalive(seconds uint16) {
	e.keepalive = time.Duration(seconds) * time.Second
}

// Enqueue serializes p into the outbound scratch buffer for the host to
// pick up via the next Feed call's EventOutgoingBuf. It resets the
// keepalive deadline on success, per §4.2 ("every write to the outbound
// buffer resets last_outgoing").
func (e *Engine) Enqueue(p *Packet) error {
	n, err := Serialize(p, e.outbound[e.outLen:])
	if err != nil {
		return err
	}
	e.outLen += n
	e.lastOutgoing = e.clock.Now()
	return nil
}

// PendingQoS2 reports how many QoS 2 deliveries are currently awaiting a
// PUBREL from the broker.
func (e *Engine) PendingQoS2() int { return e.pending.Len() }

// Feed advances the engine with input. If the outbound buffer holds bytes
// queued by a prior call (automatic acks, a due PINGREQ, or an application
// enqueue), those are returned first and input is not touched at all this
// round; the host must call Feed again, normally with the same input,
// until it observes EventNone or EventIncomingPacket/EventErr with bytes
// consumed. See §4.2 ordering rule.
func (e *Engine) Feed(input []byte) Event {
	e.maybeSendPing()
	if e.outLen > 0 {
		return e.drainOutbound()
	}
	return e.parseInbound(input)
}

func (e *Engine) maybeSendPing() {
	if e.keepalive <= 0 || e.lastOutgoing.IsZero() {
		return
	}
	if e.clock.Now().Sub(e.lastOutgoing) > e.keepalive {
		ping := Packet{Kind: Pingreq}
		_ = e.Enqueue(&ping) // serialize failure is silently dropped, per §7
	}
}

func (e *Engine) drainOutbound() Event {
	n := e.outLen
	buf := e.outbound[:n]
	e.outLen = 0
	return Event{Kind: EventOutgoingBuf, Outgoing: buf}
}

func (e *Engine) resetParse() {
	e.st = stateParseTypeAndFlags
	e.accumulated = 0
}

func (e *Engine) parseInbound(input []byte) Event {
	consumed := 0
	for consumed < len(input) {
		b := input[consumed]
		switch e.st {
		case stateParseTypeAndFlags:
			e.curKind = PacketKind(b >> 4)
			e.curFlags = b & 0x0f
			e.remLen = 0
			e.remLenMultiplier = 1
			e.remLenNBytes = 0
			consumed++
			e.st = stateParseRemainingLength

		case stateParseRemainingLength:
			consumed++
			e.remLenNBytes++
			e.remLen += uint32(b&0x7f) * e.remLenMultiplier
			if b&0x80 != 0 {
				if e.remLenNBytes >= maxRemainingLengthBytes {
					e.resetParse()
					return Event{Kind: EventErr, Consumed: consumed, Err: ErrInvalidLength}
				}
				e.remLenMultiplier *= 128
				continue
			}
			if int(e.remLen) > len(e.inbound) {
				e.st = stateDiscardMessage
				e.accumulated = 0
				return Event{Kind: EventErr, Consumed: consumed, Err: ErrOutOfMemory}
			}
			e.st = stateAccumulateMessage
			e.accumulated = 0
			if e.remLen == 0 {
				return e.completePacket(consumed)
			}

		case stateAccumulateMessage:
			need := int(e.remLen) - e.accumulated
			avail := len(input) - consumed
			n := need
			if avail < n {
				n = avail
			}
			copy(e.inbound[e.accumulated:], input[consumed:consumed+n])
			e.accumulated += n
			consumed += n
			if e.accumulated == int(e.remLen) {
				return e.completePacket(consumed)
			}

		case stateDiscardMessage:
			need := int(e.remLen) - e.accumulated
			avail := len(input) - consumed
			n := need
			if avail < n {
				n = avail
			}
			e.accumulated += n
			consumed += n
			if e.accumulated == int(e.remLen) {
				e.resetParse()
				return Event{Kind: EventNone, Consumed: consumed}
			}
		}
	}
	return Event{Kind: EventNone, Consumed: consumed}
}

func (e *Engine) completePacket(consumed int) Event {
	body := e.inbound[:e.remLen]
	kind, flags := e.curKind, e.curFlags
	e.resetParse()
	pkt, err := parsePacket(kind, flags, body, &e.scratch)
	if err != nil {
		return Event{Kind: EventErr, Consumed: consumed, Err: err}
	}
	return e.deliverPacket(pkt, consumed)
}

// deliverPacket implements the automatic QoS receiver behavior table in
// §4.2: it enqueues acks before surfacing the packet, and suppresses
// re-delivery of duplicate QoS 2 PUBLISHes.
func (e *Engine) deliverPacket(pkt Packet, consumed int) Event {
	switch {
	case pkt.Kind == Publish && pkt.QoS == QoS1:
		ack := Packet{Kind: Puback, PacketID: pkt.PacketID}
		_ = e.Enqueue(&ack) // "ignore serialize failure"
		return Event{Kind: EventIncomingPacket, Consumed: consumed, Packet: pkt}

	case pkt.Kind == Publish && pkt.QoS == QoS2:
		if e.pending.Contains(pkt.PacketID) {
			rec := Packet{Kind: Pubrec, PacketID: pkt.PacketID}
			_ = e.Enqueue(&rec)
			return Event{Kind: EventNone, Consumed: consumed}
		}
		inserted := e.pending.Insert(pkt.PacketID)
		rec := Packet{Kind: Pubrec, PacketID: pkt.PacketID}
		_ = e.Enqueue(&rec)
		if !inserted {
			return Event{Kind: EventNone, Consumed: consumed}
		}
		return Event{Kind: EventIncomingPacket, Consumed: consumed, Packet: pkt}

	case pkt.Kind == Pubrel:
		e.pending.Remove(pkt.PacketID)
		comp := Packet{Kind: Pubcomp, PacketID: pkt.PacketID}
		_ = e.Enqueue(&comp)
		return Event{Kind: EventIncomingPacket, Consumed: consumed, Packet: pkt}

	default:
		return Event{Kind: EventIncomingPacket, Consumed: consumed, Packet: pkt}
	}
}
