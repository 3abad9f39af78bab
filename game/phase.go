package game

// Phase is the round's current stage. Phases only ever advance along
// waiting → prompting → collecting → judging → voting → revealing →
// completed, plus completed → prompting for the next round and any
// phase → error on unrecoverable failure.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePrompting
	PhaseCollecting
	PhaseJudging
	PhaseVoting
	PhaseRevealing
	PhaseCompleted
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhasePrompting:
		return "prompting"
	case PhaseCollecting:
		return "collecting"
	case PhaseJudging:
		return "judging"
	case PhaseVoting:
		return "voting"
	case PhaseRevealing:
		return "revealing"
	case PhaseCompleted:
		return "completed"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}
