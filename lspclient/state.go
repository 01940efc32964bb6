package lspclient

//go:generate stringer -type=State -trimprefix=State

// State is the lifecycle state of a Client.
type State int

// Client lifecycle states.
const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)
