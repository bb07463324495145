package printing

import (
	"fmt"

	"github.com/matzehuels/sheetbatch/pkg/core/policy"
	"github.com/matzehuels/sheetbatch/pkg/host"
)

// Status is the terminal status of a batch run.
type Status int

const (
	StatusSuccess Status = iota
	StatusAborted
)

// String returns "success" or "aborted".
func (s Status) String() string {
	if s == StatusAborted {
		return "aborted"
	}
	return "success"
}

// ReasonFormatNotFound is the abort reason when a group has no usable paper
// format.
const ReasonFormatNotFound = "format not found"

// State is a step of the per-run state machine:
//
//	Idle -> Grouping -> {BuildingSet -> ResolvingPolicy -> (Configuring -> Submitting) | Aborted} -> Done
type State int

const (
	StateIdle State = iota
	StateGrouping
	StateBuildingSet
	StateResolvingPolicy
	StateConfiguring
	StateSubmitting
	StateAborted
	StateDone
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateGrouping:        "grouping",
	StateBuildingSet:     "building-set",
	StateResolvingPolicy: "resolving-policy",
	StateConfiguring:     "configuring",
	StateSubmitting:      "submitting",
	StateAborted:         "aborted",
	StateDone:            "done",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == StateAborted || s == StateDone }

// GroupResult describes one fully processed group.
type GroupResult struct {
	Label   string
	ViewSet string
	Sheets  int
	Policy  policy.Policy
	Job     host.Job
}

// Outcome is the result of a batch run. Groups processed before an abort are
// listed in Groups; their view sets and jobs are not rolled back.
type Outcome struct {
	Status Status
	// Reason and Label are set when Status is StatusAborted.
	Reason string
	Label  string
	// Detail explains why the format could not be resolved.
	Detail string
	// ViewSet is the set persisted for the aborting group. It stays in the
	// store but is never printed.
	ViewSet string

	Groups  []GroupResult
	Skipped []host.Sheet
}

// OK reports whether the run succeeded.
func (o *Outcome) OK() bool { return o.Status == StatusSuccess }

// Message returns the single user-facing status line of the run.
func (o *Outcome) Message() string {
	if o.Status == StatusAborted {
		return fmt.Sprintf("%s: %q (%s)", o.Reason, o.Label, o.Detail)
	}
	return fmt.Sprintf("printed %d group(s)", len(o.Groups))
}
