package mqttcore_test

import (
	"fmt"
	"net"
	"time"

	"github.com/tinkerloop/mqttcore"
)

// Example_feedLoop illustrates the host-driven read/feed/handle loop a
// transport implementation runs around a Client. It is illustrative only:
// the socket plumbing itself is not part of the tested core surface.
func Example_feedLoop() {
	conn, err := net.DialTimeout("tcp", "localhost:1883", 2*time.Second)
	if err != nil {
		fmt.Println("dial failed")
		return
	}
	defer conn.Close()

	client, err := mqttcore.NewClient()
	if err != nil {
		fmt.Println("client construction failed")
		return
	}

	if err := client.Connect(mqttcore.DefaultConnectOptions(mqttcore.NewClientID())); err != nil {
		fmt.Println("connect failed")
		return
	}

	readBuf := make([]byte, 1500)
	var input []byte
	for {
		ev := client.Feed(input)
		input = input[ev.Consumed:]
		switch ev.Kind {
		case mqttcore.EventOutgoingBuf:
			if _, err := conn.Write(ev.Outgoing); err != nil {
				return
			}
		case mqttcore.EventIncomingPacket:
			if ev.Packet.Kind == mqttcore.Connack {
				return
			}
		case mqttcore.EventErr:
			return
		}
		if ev.Kind != mqttcore.EventNone || len(input) > 0 {
			continue
		}

		n, err := conn.Read(readBuf)
		if err != nil {
			return
		}
		input = readBuf[:n]
	}
}
