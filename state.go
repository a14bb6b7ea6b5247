package bootstrap

import "fmt"

// State represents a state of the server lifecycle:
//
//	          Init / Stop
//	+-----------+ -------> +---------+  Start  +---------+
//	| Destroyed |          | Stopped | ------> | Running |
//	+-----------+ <------- +---------+ <------ +---------+
//	  ^          Destroy               Stop / Join    |
//	  |                                               |
//	  +-----------------------------------------------+
//	                        Destroy
//
// Start and Join from Destroyed go through Stopped without stopping there.
type State uint8

const (
	// Destroyed is the initial state. No engine exists.
	Destroyed State = iota
	// Stopped means the engine is built but not serving.
	Stopped
	// Running means the engine is serving.
	Running
)

func (s State) String() string {
	switch s {
	case Destroyed:
		return "Destroyed"
	case Stopped:
		return "Stopped"
	case Running:
		return "Running"
	default:
		return fmt.Sprintf("%d", int(s))
	}
}

// phase is the state of a controller together with the engine it owns, if
// any. A Stopped or Running controller always has an engine.
type phase interface {
	state() State
	engine() Engine
}

type destroyed struct{}

func (destroyed) state() State   { return Destroyed }
func (destroyed) engine() Engine { return nil }

type stopped struct{ eng Engine }

func (stopped) state() State     { return Stopped }
func (p stopped) engine() Engine { return p.eng }

type running struct{ eng Engine }

func (running) state() State     { return Running }
func (p running) engine() Engine { return p.eng }
