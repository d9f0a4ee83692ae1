package mastery

// Status represents a lesson's position in the mastery lifecycle.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusStarted    Status = "started"
	StatusCompleted  Status = "completed"
)

// CompletionThreshold is the global mastery at which a lesson counts as
// completed and a reward is due.
const CompletionThreshold = 95

// Outcome tags what an update did.
type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeStructureMissing Outcome = "structure_missing"
)

// Update reasons with special meaning.
const (
	// ReasonQuizPerfect marks a fully correct quiz. It bypasses damping.
	ReasonQuizPerfect = "quiz_perfect"
	ReasonQuiz        = "quiz"
)

func parseStatus(s string) Status {
	switch Status(s) {
	case StatusStarted, StatusCompleted:
		return Status(s)
	default:
		return StatusNotStarted
	}
}
