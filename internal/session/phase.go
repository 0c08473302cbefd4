package session

// Phase tracks where the session is in the fetch/edit/push cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseReady
	PhaseEditing
	PhasePushing
)

func (p Phase) String() string {
	switch p {
	case PhaseFetching:
		return "fetching"
	case PhaseReady:
		return "ready"
	case PhaseEditing:
		return "editing"
	case PhasePushing:
		return "pushing"
	default:
		return "idle"
	}
}
