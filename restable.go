package disrnet

// restable.go holds the crossbar arbitration state of a router: which input
// port currently owns each output port

import "fmt"

const (
	entryFree     = -2
	entryUnusable = -1
)

// ReservationTable maps every output port to the input port granted it, or to
// one of the free/unusable markers.  Unusable entries stay unusable.
type ReservationTable struct {
	rtable [NumPorts]int
}

// CreateReservationTable is a constructor, every output starts free
func CreateReservationTable() *ReservationTable {
	rt := new(ReservationTable)
	for idx := range rt.rtable {
		rt.rtable[idx] = entryFree
	}
	return rt
}

// IsAvailable is true only when out is free
func (rt *ReservationTable) IsAvailable(out Direction) bool {
	return rt.rtable[out] == entryFree
}

// IsUnusable reports whether out was invalidated
func (rt *ReservationTable) IsUnusable(out Direction) bool {
	return rt.rtable[out] == entryUnusable
}

// Reserve grants out to in, after dropping whatever in held before
func (rt *ReservationTable) Reserve(in, out Direction) {
	if !rt.IsAvailable(out) {
		panic(fmt.Errorf("reserve %s->%s: output not available (entry %d)", in, out, rt.rtable[out]))
	}
	rt.releaseInput(in)
	rt.rtable[out] = int(in)
}

// ReserveMulti grants every port in outs to in.  All of outs are checked
// before anything changes.
func (rt *ReservationTable) ReserveMulti(in Direction, outs []Direction) {
	for _, out := range outs {
		if !rt.IsAvailable(out) {
			panic(fmt.Errorf("reserve %s->%v: output %s not available", in, outs, out))
		}
	}
	rt.releaseInput(in)
	for _, out := range outs {
		rt.rtable[out] = int(in)
	}
}

// Release frees out, which must currently be granted
func (rt *ReservationTable) Release(out Direction) {
	if rt.rtable[out] < 0 {
		panic(fmt.Errorf("release %s: output is not granted (entry %d)", out, rt.rtable[out]))
	}
	rt.rtable[out] = entryFree
}

// OutputPort returns the first output granted to in
func (rt *ReservationTable) OutputPort(in Direction) (Direction, bool) {
	for out, holder := range rt.rtable {
		if holder == int(in) {
			return Direction(out), true
		}
	}
	return NoDirection, false
}

// OutputPorts returns every output granted to in, in port order
func (rt *ReservationTable) OutputPorts(in Direction) []Direction {
	outs := []Direction{}
	for out, holder := range rt.rtable {
		if holder == int(in) {
			outs = append(outs, Direction(out))
		}
	}
	return outs
}

// Holder returns the input granted out, if any
func (rt *ReservationTable) Holder(out Direction) (Direction, bool) {
	if rt.rtable[out] < 0 {
		return NoDirection, false
	}
	return Direction(rt.rtable[out]), true
}

// Invalidate makes out permanently unusable
func (rt *ReservationTable) Invalidate(out Direction) {
	rt.rtable[out] = entryUnusable
}

// Clear frees every granted entry and leaves unusable ones alone
func (rt *ReservationTable) Clear() {
	for idx, holder := range rt.rtable {
		if holder != entryUnusable {
			rt.rtable[idx] = entryFree
		}
	}
}

// floodSet lists the mesh directions free for a flood arriving on in
func (rt *ReservationTable) floodSet(in Direction) []Direction {
	outs := []Direction{}
	for _, out := range MeshDirections() {
		if out != in && rt.IsAvailable(out) {
			outs = append(outs, out)
		}
	}
	return outs
}

func (rt *ReservationTable) releaseInput(in Direction) {
	for idx, holder := range rt.rtable {
		if holder == int(in) {
			rt.rtable[idx] = entryFree
		}
	}
}
