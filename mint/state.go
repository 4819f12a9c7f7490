// Package mint drives the approve-then-mint workflow against the
// collection and stablecoin contracts for one wallet session.
package mint

// State is a step of the mint workflow.
type State int

const (
	Disconnected State = iota
	Connected
	Approving
	Approved
	Minting
	Minted
	Error
)

var stateNames = map[State]string{
	Disconnected: "disconnected",
	Connected:    "connected",
	Approving:    "approving",
	Approved:     "approved",
	Minting:      "minting",
	Minted:       "minted",
	Error:        "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Pending reports whether a transaction is in flight.
func (s State) Pending() bool {
	return s == Approving || s == Minting
}

// settled reports whether the workflow is idle with a wallet attached.
func (s State) settled() bool {
	return s == Connected || s == Approved || s == Minted
}
