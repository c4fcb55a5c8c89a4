package api

import (
	"switchboard/internal/capability"
	"switchboard/internal/identity"
)

// Result is the outcome code carried in a connect reply.
type Result int

const (
	ResultSucceeded Result = iota
	ResultInvalidArgument
	ResultAccessDenied
	ResultResolutionFailure
	ResultInstanceStartFailure
	ResultConnectionLost
)

// String makes Result satisfy the fmt.Stringer interface.
func (r Result) String() string {
	switch r {
	case ResultSucceeded:
		return "Succeeded"
	case ResultInvalidArgument:
		return "InvalidArgument"
	case ResultAccessDenied:
		return "AccessDenied"
	case ResultResolutionFailure:
		return "ResolutionFailure"
	case ResultInstanceStartFailure:
		return "InstanceStartFailure"
	case ResultConnectionLost:
		return "ConnectionLost"
	default:
		return "Unknown"
	}
}

// ServiceInfo describes a service to its peers: who it is and what its
// manifest declares.
type ServiceInfo struct {
	Identity identity.Identity `json:"identity"`
	Spec     capability.Spec   `json:"spec"`
}

// InstanceState is the broker-side lifecycle of one instance.
type InstanceState string

const (
	// InstanceStarting means the instance exists but has not answered its
	// start request yet.
	InstanceStarting InstanceState = "Starting"
	// InstanceRunning means the instance acknowledged start.
	InstanceRunning InstanceState = "Running"
	// InstanceRemoved means the instance was dropped from the table. A
	// removed instance never becomes Running again.
	InstanceRemoved InstanceState = "Removed"
)

// RunningServiceInfo is the listener-facing snapshot of one instance.
type RunningServiceInfo struct {
	Identity identity.Identity `json:"identity"`
	PID      int               `json:"pid"`
	State    InstanceState     `json:"state"`
}
