package buildpipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageLoad reads and decodes the crate bundle.
	StageLoad Stage = "load"
	// StageValidate checks body invariants.
	StageValidate Stage = "validate"
	// StageTranslate renders each definition.
	StageTranslate Stage = "translate"
	// StageSchedule orders definitions by dependency.
	StageSchedule Stage = "schedule"
	// StageWrite writes the rendered output.
	StageWrite Stage = "write"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusCached indicates the result was reused from the translation cache.
	StatusCached Status = "cached"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for a definition (or for the overall pipeline when Def is empty).
type Event struct {
	Def     string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Emit sends evt to sink when one is set.
func Emit(sink ProgressSink, evt Event) {
	if sink == nil {
		return
	}
	sink.OnEvent(evt)
}

// Queued announces every definition before work starts.
func Queued(sink ProgressSink, defs []string) {
	for _, d := range defs {
		Emit(sink, Event{Def: d, Stage: StageTranslate, Status: StatusQueued})
	}
}
