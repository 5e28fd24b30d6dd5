package disrnet

// errors.go holds the error values that leave the package

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidConfig is the cause of every configuration rejection
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrInvalidSweep is the cause of every rejected parameter sweep
var ErrInvalidSweep = errors.New("invalid sweep")

// ProtocolViolation reports a packet that arrived in a status and segment
// combination the DiSR state machine declares impossible
type ProtocolViolation struct {
	Node        int
	Kind        PacketKind
	Status      Status
	NodeSegID   SegmentID
	PacketSegID SegmentID
	DirIn       Direction
	Reason      string
}

func (pv *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation at node %d: %s (packet %s %s from %s, node %s %s)",
		pv.Node, pv.Reason, pv.Kind, pv.PacketSegID, pv.DirIn, pv.Status, pv.NodeSegID)
}

// ReportErrs folds the non-nil members of errs into one error whose message
// lists them separated by commas.  It returns nil when nothing failed.
func ReportErrs(errs []error) error {
	errMsg := make([]string, 0)
	for _, err := range errs {
		if err != nil {
			errMsg = append(errMsg, err.Error())
		}
	}
	if len(errMsg) == 0 {
		return nil
	}

	return errors.New(strings.Join(errMsg, ","))
}
