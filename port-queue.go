package disrnet

// port-queue.go holds the bounded FIFO that buffers packets at each router port

import "fmt"

// PushResult reports whether a packet entered the queue
type PushResult int

const (
	Accepted PushResult = iota
	Dropped
)

func (pr PushResult) String() string {
	if pr == Accepted {
		return "accepted"
	}
	return "dropped"
}

// PortQueue is a FIFO of packets with a capacity fixed at construction.
// Inserting into a full queue loses the packet; it never blocks.
type PortQueue struct {
	capacity int
	msgQueue []Packet
}

// CreatePortQueue is a constructor.  A non-positive depth is a programming
// error; configurations are validated before any queue is built.
func CreatePortQueue(depth int) *PortQueue {
	if depth < 1 {
		panic(fmt.Errorf("port queue depth %d must be positive", depth))
	}
	pq := new(PortQueue)
	pq.capacity = depth
	pq.msgQueue = make([]Packet, 0, depth)
	return pq
}

// Push appends pkt unless the queue is full
func (pq *PortQueue) Push(pkt Packet) PushResult {
	if pq.IsFull() {
		return Dropped
	}
	pq.msgQueue = append(pq.msgQueue, pkt)
	return Accepted
}

// Pop removes and returns the head packet.  Calling it on an empty queue panics.
func (pq *PortQueue) Pop() Packet {
	if pq.IsEmpty() {
		panic("pop on empty port queue")
	}
	pkt := pq.msgQueue[0]
	pq.msgQueue = pq.msgQueue[1:]
	return pkt
}

// Front returns a copy of the head packet.  Calling it on an empty queue panics.
func (pq *PortQueue) Front() Packet {
	if pq.IsEmpty() {
		panic("front of empty port queue")
	}
	return pq.msgQueue[0]
}

func (pq *PortQueue) IsFull() bool {
	return len(pq.msgQueue) >= pq.capacity
}

func (pq *PortQueue) IsEmpty() bool {
	return len(pq.msgQueue) == 0
}

func (pq *PortQueue) Len() int {
	return len(pq.msgQueue)
}

func (pq *PortQueue) FreeSlots() int {
	return pq.capacity - len(pq.msgQueue)
}

func (pq *PortQueue) Capacity() int {
	return pq.capacity
}

// clear empties the queue, used on reset
func (pq *PortQueue) clear() {
	pq.msgQueue = pq.msgQueue[:0]
}
