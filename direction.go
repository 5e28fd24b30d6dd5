package disrnet

// direction.go names the five ports of a mesh node

import "fmt"

// Direction identifies a port of a node.  The four mesh directions come first
// so they can index the per-link arrays directly; Local is the port that
// connects the router to its processing element.
type Direction int

const (
	North Direction = iota
	East
	South
	West
	Local
)

// NumDirections is the number of mesh links a node can have
const NumDirections = 4

// NumPorts counts the mesh directions plus the local port
const NumPorts = 5

// NoDirection marks a direction field that has not been set
const NoDirection Direction = -1

var dirNames = map[Direction]string{North: "N", East: "E", South: "S", West: "W", Local: "L"}

func (d Direction) String() string {
	name, present := dirNames[d]
	if present {
		return name
	}
	return fmt.Sprintf("dir(%d)", int(d))
}

// IsMesh is true for the four link directions
func (d Direction) IsMesh() bool {
	return d >= North && d <= West
}

// Opposite returns the direction a packet sent out on d arrives on at the
// neighbour.  Local and unset directions map to themselves.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	}
	return d
}

// MeshDirections lists North, East, South, West in port order
func MeshDirections() []Direction {
	return []Direction{North, East, South, West}
}
