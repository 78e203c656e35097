package reconcile

// Action represents what reconciliation action needs to be taken.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// DetermineAction decides the single action for a reconciliation.
// equal is only meaningful when matched is true.
func DetermineAction(intent Intent, matched, equal bool) Action {
	switch intent {
	case Present:
		if !matched {
			return ActionCreate
		}
		if equal {
			return ActionNone
		}
		return ActionUpdate
	case Absent:
		if matched {
			return ActionDelete
		}
	}
	return ActionNone
}
