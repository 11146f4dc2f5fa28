package daemon

import "fmt"

// State is a step in the daemonizer's lifecycle, observable via
// Process.State for logging and tests.
type State int

const (
	StateNew State = iota
	Configured
	PreflightOK
	IdentitySet
	Fork1Parent
	Fork1Child
	Detached
	Fork2Parent
	Fork2Child
	Running
	Done
)

var stateNames = [...]string{
	"New", "Configured", "PreflightOK", "IdentitySet",
	"Fork1Parent", "Fork1Child", "Detached",
	"Fork2Parent", "Fork2Child", "Running", "Done",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}
