package timesheet

import "fmt"

// =============================================================================
// SUBMISSION STATE MACHINE
// =============================================================================
//
//   Idle --submit--> Refreshing --refreshed--> Validating --valid--> Submitting
//                        |                         |                    |
//                  refresh_failed               invalid         stored / store_failed
//                        v                         v                    v
//                     Rejected                  Rejected       Submitted / Failed
//
//   Submitted, Rejected and Failed return to Idle on acknowledge.

type State string

const (
	StateIdle       State = "idle"
	StateRefreshing State = "refreshing"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateRejected   State = "rejected"
	StateFailed     State = "failed"
)

// Terminal states end an attempt.
func (s State) Terminal() bool {
	return s == StateSubmitted || s == StateRejected || s == StateFailed
}

type Event string

const (
	EventSubmit        Event = "submit"
	EventRefreshed     Event = "refreshed"
	EventRefreshFailed Event = "refresh_failed"
	EventValid         Event = "valid"
	EventInvalid       Event = "invalid"
	EventStored        Event = "stored"
	EventStoreFailed   Event = "store_failed"
	EventAcknowledge   Event = "acknowledge"
)

var transitions = map[State]map[Event]State{
	StateIdle: {
		EventSubmit: StateRefreshing,
	},
	StateRefreshing: {
		EventRefreshed:     StateValidating,
		EventRefreshFailed: StateRejected,
	},
	StateValidating: {
		EventValid:   StateSubmitting,
		EventInvalid: StateRejected,
	},
	StateSubmitting: {
		EventStored:      StateSubmitted,
		EventStoreFailed: StateFailed,
	},
	StateSubmitted: {EventAcknowledge: StateIdle},
	StateRejected:  {EventAcknowledge: StateIdle},
	StateFailed:    {EventAcknowledge: StateIdle},
}

// Transition returns the state reached from s on e. Pairs not in the
// diagram return ErrIllegalTransition and leave the state unchanged.
func Transition(s State, e Event) (State, error) {
	if next, ok := transitions[s][e]; ok {
		return next, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, e, s)
}
