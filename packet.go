package disrnet

// packet.go describes the unit of transfer between ports

// PacketKind distinguishes the DiSR control messages from ordinary traffic
type PacketKind int

const (
	StartingSegmentRequest PacketKind = iota
	StartingSegmentConfirm
	SegmentRequest
	SegmentConfirm
	SegmentCancel
	DataPacket
)

var kindNames = map[PacketKind]string{
	StartingSegmentRequest: "starting-segment-request",
	StartingSegmentConfirm: "starting-segment-confirm",
	SegmentRequest:         "segment-request",
	SegmentConfirm:         "segment-confirm",
	SegmentCancel:          "segment-cancel",
	DataPacket:             "data",
}

func (pk PacketKind) String() string {
	name, present := kindNames[pk]
	if present {
		return name
	}
	return "unknown"
}

// unlimitedTTL is carried by requests when no time-to-live bound is configured
const unlimitedTTL = -1

// Packet is copied by value through queues and across links.  DirIn and DirOut
// are rewritten at every hop.
type Packet struct {
	SegID     SegmentID
	Src       int
	Dst       int
	Kind      PacketKind
	DirIn     Direction
	DirOut    Direction
	TTL       int
	Timestamp int64
	Hops      int
}

// ttlExhausted is true once a bounded time-to-live has been used up
func (pkt *Packet) ttlExhausted() bool {
	return pkt.TTL == 0
}

// decrementTTL leaves an unlimited time-to-live alone
func (pkt *Packet) decrementTTL() {
	if pkt.TTL > 0 {
		pkt.TTL--
	}
}
