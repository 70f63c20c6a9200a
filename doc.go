/*
Package mqttcore implements the wire format and session state machine of
MQTT v3.1.1 client connections.

It is a sans-I/O core: it never touches a socket. The host owns the
transport (TCP, TLS, a serial link, an in-process pipe for tests) and drives
the core by feeding it inbound bytes and writing out whatever bytes the core
produces. All parsing, serialization, QoS bookkeeping and keepalive timing
happen here; connecting sockets, retrying connections and persisting
in-flight messages across restarts do not.

Start by reading Engine and Event if you want the feed()/drain loop. Start
by reading Packet if you want the wire format.
*/
package mqttcore
