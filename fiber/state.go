package fiber

// State represents the scheduling state of a fiber.
//
// State Machine:
//
//	StateReady     → StateRunning    [worker resumes the fiber]
//	StateRunning   → StateSuspended  [Suspend, after descheduling, before the lock is released]
//	StateRunning   → StateReady      [Yield]
//	StateRunning   → StateDone       [fiber function returned or panicked]
//	StateSuspended → StateReady      [SetReady, via CAS]
//	StateDone      → (terminal)
type State uint32

const (
	// StateReady indicates the fiber is queued on a worker.
	StateReady State = iota
	// StateRunning indicates the fiber is executing on a worker.
	StateRunning
	// StateSuspended indicates the fiber is descheduled, waiting for
	// SetReady.
	StateSuspended
	// StateDone indicates the fiber has finished.
	StateDone
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateSuspended:
		return "Suspended"
	case StateDone:
		return "Done"
	default:
		return "Unknown"
	}
}
