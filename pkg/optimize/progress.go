package optimize

// EventType identifies an iteration progress event.
type EventType string

const (
	EventIterationStart    EventType = "iteration_start"
	EventRoundStart        EventType = "round_start"
	EventRoundComplete     EventType = "round_complete"
	EventCandidateTested   EventType = "candidate_tested"
	EventIterationComplete EventType = "iteration_complete"
)

// ProgressEvent reports per-round and final completion of an iteration.
type ProgressEvent struct {
	Type        EventType
	IterationID string
	ProjectID   string
	Message     string

	Round     *Round
	Candidate *Candidate
	Report    *Report
}

// ProgressCallback receives iteration events. Callbacks run on the loop
// goroutine and must not block.
type ProgressCallback func(event ProgressEvent)

// NoopProgressCallback discards iteration events.
func NoopProgressCallback(ProgressEvent) {}
