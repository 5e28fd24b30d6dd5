package disrnet

// segid.go holds the value type naming a segment by the node and link that started it

import "fmt"

const (
	notValid    = -1
	notReserved = -2
)

// SegmentID is the pair (originating node, originating link).  It is in one of
// three disjoint states: free (both fields notReserved), unusable (both fields
// notValid) or assigned (both fields real).
type SegmentID struct {
	Node int       `json:"node" yaml:"node"`
	Link Direction `json:"link" yaml:"link"`
}

// FreeSegmentID returns the identifier of an unclaimed link or node
func FreeSegmentID() SegmentID {
	return SegmentID{Node: notReserved, Link: notReserved}
}

// UnusableSegmentID returns the identifier of a boundary or defective link
func UnusableSegmentID() SegmentID {
	return SegmentID{Node: notValid, Link: notValid}
}

// NewSegmentID is a constructor for an assigned identifier
func NewSegmentID(node int, link Direction) SegmentID {
	return SegmentID{Node: node, Link: link}
}

func (sid SegmentID) IsFree() bool {
	return sid.Node == notReserved && sid.Link == notReserved
}

// IsValid is false only for the unusable state
func (sid SegmentID) IsValid() bool {
	return !(sid.Node == notValid && sid.Link == notValid)
}

func (sid SegmentID) IsAssigned() bool {
	return sid.Node >= 0 && sid.Link >= 0
}

func (sid SegmentID) String() string {
	switch {
	case sid.IsFree():
		return "(.)"
	case !sid.IsValid():
		return "(!)"
	}
	return fmt.Sprintf("(%d.%d)", sid.Node, int(sid.Link))
}
