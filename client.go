package mqttcore

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

const defaultBufferLen = 1500

// Options configures Client construction. Build one with a sequence of
// Option funcs; the buffers, Clock and Logger, if left zero after all
// options run, are filled in by DefaultOptions. A zero PendingCapacity
// selects the engine's default table size.
type Options struct {
	InboundBuffer   []byte
	OutboundBuffer  []byte
	Clock           Clock
	PendingCapacity int
	Logger          Logger
}

// Option mutates an Options during Client construction.
type Option func(*Options)

// WithInboundBuffer supplies the scratch buffer Feed assembles incoming
// packet bodies into. Its length bounds the largest packet body the engine
// can accept; oversized packets are discarded with ErrOutOfMemory.
func WithInboundBuffer(buf []byte) Option {
	return func(o *Options) { o.InboundBuffer = buf }
}

// WithOutboundBuffer supplies the scratch buffer Enqueue serializes into.
func WithOutboundBuffer(buf []byte) Option {
	return func(o *Options) { o.OutboundBuffer = buf }
}

// WithClock overrides the monotonic time source used for keepalive timing.
// Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(o *Options) { o.Clock = c }
}

// WithClientPendingCapacity overrides the QoS 2 receiver-state table size.
// See EngineOption's WithPendingCapacity for the underlying default.
func WithClientPendingCapacity(n int) Option {
	return func(o *Options) { o.PendingCapacity = n }
}

// WithLogger supplies a diagnostic sink for non-fatal engine errors.
// Defaults to a no-op.
func WithLogger(l Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// DefaultOptions fills any still-zero field of an Options with the
// package's defaults: a 1500-byte buffer pair, SystemClock, and a no-op
// Logger. It is applied automatically by NewClient after the caller's own
// options run, so a blank field never needs an explicit default option.
func DefaultOptions() Option {
	return func(o *Options) {
		if len(o.InboundBuffer) == 0 {
			o.InboundBuffer = make([]byte, defaultBufferLen)
		}
		if len(o.OutboundBuffer) == 0 {
			o.OutboundBuffer = make([]byte, defaultBufferLen)
		}
		if o.Clock == nil {
			o.Clock = SystemClock{}
		}
		if o.Logger == nil {
			o.Logger = noopLogger{}
		}
	}
}

// idAllocator hands out MQTT packet identifiers. 0 is reserved by the
// protocol and is skipped on wraparound. The counter is a plain atomic
// uint32 so concurrent callers see unique identifiers even though the rest
// of Client's surface assumes a single caller (§5): this is the one piece
// of Client state the application layer is allowed to touch from more than
// one goroutine.
type idAllocator struct {
	n atomic.Uint32
}

func (a *idAllocator) next() uint16 {
	for {
		id := uint16(a.n.Add(1))
		if id != 0 {
			return id
		}
	}
}

// ConnectOptions configures a Connect call. There is no implicit default
// for KeepaliveSecs: a zero value is a legitimate request to disable
// keepalive, so callers that want the conventional 30-second default should
// start from DefaultConnectOptions rather than leave the field unset.
type ConnectOptions struct {
	ClientID      []byte
	CleanSession  bool
	KeepaliveSecs uint16
	Will          *Will
	Username      []byte
	Password      []byte
}

// DefaultConnectOptions seeds a ConnectOptions with clientID and the
// protocol's conventional defaults (clean_session=false, a 30 second
// keepalive).
func DefaultConnectOptions(clientID []byte) ConnectOptions {
	return ConnectOptions{ClientID: clientID, CleanSession: false, KeepaliveSecs: 30}
}

// Client is the application-facing wrapper around Engine: it assembles
// outgoing Packet values from friendlier per-operation arguments, allocates
// packet identifiers, and tracks the most recent non-fatal error so a host
// that just wants to log doesn't have to inspect every Event.
type Client struct {
	engine *Engine
	ids    idAllocator
	logger Logger

	lastErr error
}

// NewClient constructs a Client. Caller-supplied options run first, then
// DefaultOptions fills in anything left unset.
func NewClient(opts ...Option) (*Client, error) {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	DefaultOptions()(o)

	var engOpts []EngineOption
	if o.PendingCapacity > 0 {
		engOpts = append(engOpts, WithPendingCapacity(o.PendingCapacity))
	}
	engine, err := NewEngine(o.InboundBuffer, o.OutboundBuffer, o.Clock, engOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{engine: engine, logger: o.Logger}, nil
}

// Connect enqueues a CONNECT packet and arms the engine's keepalive timer
// at the negotiated interval.
func (c *Client) Connect(opts ConnectOptions) error {
	pkt := Packet{
		Kind:         Connect,
		CleanSession: opts.CleanSession,
		KeepAlive:    opts.KeepaliveSecs,
		ClientID:     opts.ClientID,
		Will:         opts.Will,
		Username:     opts.Username,
		Password:     opts.Password,
	}
	if err := c.engine.Enqueue(&pkt); err != nil {
		return c.wrapErr("connect", err)
	}
	c.engine.SetKeepalive(opts.KeepaliveSecs)
	return nil
}

// Publish enqueues a PUBLISH packet. At QoS 0 the returned packetID is
// always 0, matching the protocol's rule that QoS 0 PUBLISHes carry no
// identifier; at QoS 1/2 a fresh identifier is allocated and returned so
// the host can correlate a later PUBACK/PUBCOMP.
func (c *Client) Publish(topic, payload []byte, qos QoS, retain bool) (packetID uint16, err error) {
	pkt := Packet{Kind: Publish, QoS: qos, Retain: retain, Topic: topic, Payload: payload}
	if qos != QoS0 {
		packetID = c.ids.next()
		pkt.PacketID = packetID
	}
	if err := c.engine.Enqueue(&pkt); err != nil {
		return 0, c.wrapErr("publish", err)
	}
	return packetID, nil
}

// Subscribe enqueues a SUBSCRIBE packet covering topics and returns the
// allocated packet identifier.
func (c *Client) Subscribe(topics []SubscribeTopic) (packetID uint16, err error) {
	packetID = c.ids.next()
	pkt := Packet{Kind: Subscribe, PacketID: packetID, Topics: topics}
	if err := c.engine.Enqueue(&pkt); err != nil {
		return 0, c.wrapErr("subscribe", err)
	}
	return packetID, nil
}

// Unsubscribe enqueues an UNSUBSCRIBE packet covering topicFilters and
// returns the allocated packet identifier.
func (c *Client) Unsubscribe(topicFilters [][]byte) (packetID uint16, err error) {
	packetID = c.ids.next()
	pkt := Packet{Kind: Unsubscribe, PacketID: packetID, TopicFilters: topicFilters}
	if err := c.engine.Enqueue(&pkt); err != nil {
		return 0, c.wrapErr("unsubscribe", err)
	}
	return packetID, nil
}

// Disconnect enqueues a DISCONNECT packet. It does not close anything: the
// host is responsible for tearing down the transport once the outbound
// bytes have been written.
func (c *Client) Disconnect() error {
	pkt := Packet{Kind: Disconnect}
	if err := c.engine.Enqueue(&pkt); err != nil {
		return c.wrapErr("disconnect", err)
	}
	return nil
}

// Feed drives the underlying Engine and records any error event for
// LastError, logging it at Warn level.
func (c *Client) Feed(input []byte) Event {
	ev := c.engine.Feed(input)
	if ev.Kind == EventErr {
		c.lastErr = ev.Err
		c.logger.WithField("err", ev.Err).Warnf("mqttcore: feed error: %v", ev.Err)
	}
	return ev
}

// LastError returns the most recent error Feed observed, or nil if none
// has occurred yet.
func (c *Client) LastError() error { return c.lastErr }

// PendingQoS2 reports how many QoS 2 deliveries are awaiting a PUBREL.
func (c *Client) PendingQoS2() int { return c.engine.PendingQoS2() }

func (c *Client) wrapErr(op string, err error) error {
	return errors.WithMessage(err, "mqttcore: "+op)
}
