package model

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusCheckedIn  Status = "CHECKED_IN"
	StatusCheckedOut Status = "CHECKED_OUT"
	StatusCancelled  Status = "CANCELLED"
)

// Action is a lifecycle transition offered to the operator. The rendered
// action set is derived from the current status at response time, never
// stored.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionCheckIn  Action = "check-in"
	ActionCheckOut Action = "check-out"
	ActionCancel   Action = "cancel"
)

// Strict forward progression, no skips. CANCELLED is reachable from
// PENDING or CONFIRMED only; CHECKED_OUT and CANCELLED are terminal.
var allowedActions = map[Status][]Action{
	StatusPending:   {ActionConfirm, ActionCancel},
	StatusConfirmed: {ActionCheckIn, ActionCancel},
	StatusCheckedIn: {ActionCheckOut},
}

var actionTarget = map[Action]Status{
	ActionConfirm:  StatusConfirmed,
	ActionCheckIn:  StatusCheckedIn,
	ActionCheckOut: StatusCheckedOut,
	ActionCancel:   StatusCancelled,
}

// AllowedActions returns the transitions legal from status. Terminal
// statuses return an empty set.
func AllowedActions(status Status) []Action {
	actions := allowedActions[status]
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

func CanApply(status Status, action Action) bool {
	for _, a := range allowedActions[status] {
		if a == action {
			return true
		}
	}
	return false
}

func Target(action Action) (Status, bool) {
	s, ok := actionTarget[action]
	return s, ok
}

// Editable reports whether UI policy permits updating reservation fields.
func Editable(status Status) bool {
	return status == StatusPending || status == StatusConfirmed
}
