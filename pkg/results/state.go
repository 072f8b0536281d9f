package results

// State is the position of a Reader within its stream.
type State int

const (
	// NotStarted is the state of a multi-set reader before its first advance.
	NotStarted State = iota
	// InSet means events of the current set may remain.
	InSet
	// BetweenSets means the current set's events are exhausted.
	BetweenSets
	// Exhausted means no further set exists.
	Exhausted
	// Disposed means the reader was closed.
	Disposed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InSet:
		return "in_set"
	case BetweenSets:
		return "between_sets"
	case Exhausted:
		return "exhausted"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}
