package disrnet

// trace.go gathers a per-node record of what happened to packets during a
// run and writes it out as YAML or JSON

import (
	"sort"

	"gopkg.in/yaml.v3"
)

// TraceInst is one trace record, its text already serialized
type TraceInst struct {
	Cycle     int64  `json:"cycle" yaml:"cycle"`
	TraceType string `json:"tracetype" yaml:"tracetype"`
	TraceStr  string `json:"tracestr" yaml:"tracestr"`
}

// NameType maps a node id to a printable name and a kind of object
type NameType struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// TraceManager collects trace records of one experiment, grouped by node.
// Every method is safe to call on an inactive manager, which keeps nothing.
type TraceManager struct {
	InUse   bool   `json:"inuse" yaml:"inuse"`
	ExpName string `json:"expname" yaml:"expname"`

	NameByID map[int]NameType    `json:"namebyid" yaml:"namebyid"`
	Traces   map[int][]TraceInst `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  With active false the manager
// ignores every record handed to it.
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int][]TraceInst)
	return tm
}

// Active tells the caller whether records are being kept
func (tm *TraceManager) Active() bool {
	return tm != nil && tm.InUse
}

// AddTrace stores a record under the node that produced it
func (tm *TraceManager) AddTrace(nodeID int, trace TraceInst) {
	if !tm.Active() {
		return
	}
	tm.Traces[nodeID] = append(tm.Traces[nodeID], trace)
}

// AddName adds an element to the id -> (name,type) dictionary of the trace
func (tm *TraceManager) AddName(id int, name string, objDesc string) {
	if !tm.Active() {
		return
	}
	if _, present := tm.NameByID[id]; present {
		panic("duplicated id in AddName")
	}
	tm.NameByID[id] = NameType{Name: name, Type: objDesc}
}

// Len counts the records kept so far
func (tm *TraceManager) Len() int {
	if !tm.Active() {
		return 0
	}
	total := 0
	for _, records := range tm.Traces {
		total += len(records)
	}
	return total
}

// WriteToFile stores the trace in the named file, YAML or JSON by extension.
// With globalOrder the records of every node are merged into one list sorted
// by cycle and filed under node 0.
func (tm *TraceManager) WriteToFile(filename string, globalOrder bool) error {
	if !tm.Active() {
		return nil
	}
	out := tm
	if globalOrder {
		out = CreateTraceManager(tm.ExpName, tm.InUse)
		for key, value := range tm.NameByID {
			out.NameByID[key] = value
		}
		merged := []TraceInst{}
		nodeIDs := make([]int, 0, len(tm.Traces))
		for nodeID := range tm.Traces {
			nodeIDs = append(nodeIDs, nodeID)
		}
		sort.Ints(nodeIDs)
		for _, nodeID := range nodeIDs {
			merged = append(merged, tm.Traces[nodeID]...)
		}
		sort.SliceStable(merged, func(i, j int) bool {
			return merged[i].Cycle < merged[j].Cycle
		})
		out.Traces[0] = merged
	}

	bytes, merr := marshalByExt(filename, out)
	if merr != nil {
		return merr
	}
	return writeBytes(filename, bytes)
}

// NetTrace is the content of a packet event record
type NetTrace struct {
	Cycle  int64  `yaml:"cycle"`
	Node   int    `yaml:"node"`
	Op     string `yaml:"op"`
	Kind   string `yaml:"kind"`
	SegID  string `yaml:"segid"`
	Src    int    `yaml:"src"`
	DirIn  string `yaml:"dirin"`
	DirOut string `yaml:"dirout"`
	TTL    int    `yaml:"ttl"`
}

// Serialize renders the record as YAML
func (ntr *NetTrace) Serialize() string {
	var bytes []byte
	var merr error

	bytes, merr = yaml.Marshal(*ntr)
	if merr != nil {
		panic(merr)
	}
	return string(bytes)
}

// AddNetTrace records op ("inject", "drop", "recv", "send", or the name of a
// consuming verdict) applied to pkt at node
func AddNetTrace(tm *TraceManager, cycle int64, nodeID int, pkt *Packet, op string) {
	if !tm.Active() {
		return
	}
	ntr := NetTrace{Cycle: cycle, Node: nodeID, Op: op, Kind: pkt.Kind.String(), SegID: pkt.SegID.String(),
		Src: pkt.Src, DirIn: pkt.DirIn.String(), DirOut: pkt.DirOut.String(), TTL: pkt.TTL}
	tm.AddTrace(nodeID, TraceInst{Cycle: cycle, TraceType: "network", TraceStr: ntr.Serialize()})
}
