package run

// EventType identifies a progress event emitted by the scheduler.
type EventType string

const (
	EventRunStart    EventType = "run_start"
	EventTaskStart   EventType = "task_start"
	EventTaskDone    EventType = "task_done"
	EventTaskSkipped EventType = "task_skipped"
	EventRunPaused   EventType = "run_paused"
	EventRunStopped  EventType = "run_stopped"
	EventRunComplete EventType = "run_complete"
)

// ProgressEvent reports scheduler progress. Completed and Failed are always
// populated so a consumer can tell "done with some failures" from "done
// cleanly" without waiting for the summary.
type ProgressEvent struct {
	Type      EventType
	ProjectID string
	Message   string

	Task   *Task
	Record *ResultRecord

	Total     int
	Completed int
	Failed    int
}

// ProgressCallback receives progress events. Callbacks run on scheduler
// goroutines and must not block.
type ProgressCallback func(event ProgressEvent)

// NoopProgressCallback discards progress events.
func NoopProgressCallback(ProgressEvent) {}
