package domain

// Action is a user-initiated lifecycle intent.
type Action string

const (
	ActionAccept   Action = "ACCEPT"
	ActionStart    Action = "START"
	ActionReject   Action = "REJECT"
	ActionComplete Action = "COMPLETE"
	ActionClose    Action = "CLOSE"
)

var Actions = []Action{ActionAccept, ActionStart, ActionReject, ActionComplete, ActionClose}

func (a Action) Valid() bool {
	_, ok := actionDescriptors[a]
	return ok
}
