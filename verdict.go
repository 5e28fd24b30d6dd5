package disrnet

// verdict.go holds what the protocol engine tells the router to do with a packet

// VerdictKind tags the variant of a Verdict
type VerdictKind int

const (
	VerdictForward VerdictKind = iota
	VerdictFlood
	VerdictConfirm
	VerdictCancel
	VerdictRetry
	VerdictDiscard
	VerdictSkip
	VerdictEndConfirm
	VerdictEndCancel
)

var verdictNames = map[VerdictKind]string{
	VerdictForward:    "forward",
	VerdictFlood:      "flood",
	VerdictConfirm:    "confirm",
	VerdictCancel:     "cancel",
	VerdictRetry:      "retry",
	VerdictDiscard:    "discard",
	VerdictSkip:       "skip",
	VerdictEndConfirm: "end-confirm",
	VerdictEndCancel:  "end-cancel",
}

func (vk VerdictKind) String() string {
	return verdictNames[vk]
}

// Verdict is Forward(Dir) or one of the control actions, for which Dir is unset
type Verdict struct {
	Kind VerdictKind
	Dir  Direction
}

// Forward sends the packet out on dir
func Forward(dir Direction) Verdict {
	return Verdict{Kind: VerdictForward, Dir: dir}
}

func control(kind VerdictKind) Verdict {
	return Verdict{Kind: kind, Dir: NoDirection}
}

var (
	Flood      = control(VerdictFlood)
	Confirm    = control(VerdictConfirm)
	Cancel     = control(VerdictCancel)
	Retry      = control(VerdictRetry)
	Discard    = control(VerdictDiscard)
	Skip       = control(VerdictSkip)
	EndConfirm = control(VerdictEndConfirm)
	EndCancel  = control(VerdictEndCancel)
)

func (v Verdict) String() string {
	if v.Kind == VerdictForward {
		return "forward(" + v.Dir.String() + ")"
	}
	return v.Kind.String()
}

// consumes is true for verdicts whose packet is popped without being sent
func (v Verdict) consumes() bool {
	switch v.Kind {
	case VerdictConfirm, VerdictCancel, VerdictRetry, VerdictDiscard, VerdictEndConfirm, VerdictEndCancel:
		return true
	}
	return false
}
