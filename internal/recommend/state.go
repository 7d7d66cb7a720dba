package recommend

// State is the lifecycle state of the engine's model.
type State int32

const (
	StateUninitialized State = iota
	StateTraining
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateTraining:
		return "training"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
