package mqttcore

import "github.com/rs/xid"

// NewClientID returns a globally unique client identifier for hosts that
// don't already manage their own. xid values are 20 characters, well under
// the protocol's traditional 23-character client-id ceiling, and sort by
// creation time, which is convenient for broker-side logs.
func NewClientID() []byte {
	return []byte(xid.New().String())
}
