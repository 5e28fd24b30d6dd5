package disrnet

// link.go holds one direction of a point-to-point connection between two
// ports.  The sender raises a request level and places a packet, the receiver
// answers with an acknowledge level (alternating-bit protocol).  Writes made
// during a cycle become visible only after Commit, so every node reads the
// values of the previous cycle no matter in what order nodes are evaluated.

// Channel carries packets from one port to another
type Channel struct {
	req, ack   bool
	pkt        Packet
	nReq, nAck bool
	nPkt       Packet
}

// CreateChannel is a constructor; both levels start low
func CreateChannel() *Channel {
	return new(Channel)
}

// Req is the committed request level
func (ch *Channel) Req() bool {
	return ch.req
}

// Ack is the committed acknowledge level
func (ch *Channel) Ack() bool {
	return ch.ack
}

// Packet is the committed packet on the wire
func (ch *Channel) Packet() Packet {
	return ch.pkt
}

// Send places pkt on the wire and sets the request to level
func (ch *Channel) Send(pkt Packet, level bool) {
	ch.nPkt = pkt
	ch.nReq = level
}

// Acknowledge sets the acknowledge to level
func (ch *Channel) Acknowledge(level bool) {
	ch.nAck = level
}

// Pending is true while a sent packet has not been acknowledged
func (ch *Channel) Pending() bool {
	return ch.req != ch.ack || ch.nReq != ch.nAck
}

// Commit publishes the writes of the cycle
func (ch *Channel) Commit() {
	ch.req = ch.nReq
	ch.ack = ch.nAck
	ch.pkt = ch.nPkt
}

// reset drops levels and packet
func (ch *Channel) reset() {
	*ch = Channel{}
}
