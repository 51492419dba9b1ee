package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"mirlean/internal/buildpipeline"
	"mirlean/internal/observ"
)

// stageTimes records how long the driver spent in each whole-crate stage.
type stageTimes struct {
	mu    sync.Mutex
	order []buildpipeline.Stage
	dur   map[buildpipeline.Stage]time.Duration
}

func newStageTimes() *stageTimes {
	return &stageTimes{dur: make(map[buildpipeline.Stage]time.Duration)}
}

func (s *stageTimes) OnEvent(evt buildpipeline.Event) {
	if evt.Def != "" || evt.Status != buildpipeline.StatusDone {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.dur[evt.Stage]; !seen {
		s.order = append(s.order, evt.Stage)
	}
	s.dur[evt.Stage] += evt.Elapsed
}

// recordInto appends the stages to timer in the order they finished.
func (s *stageTimes) recordInto(timer *observ.Timer, notes map[buildpipeline.Stage]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.order {
		timer.Record(string(st), s.dur[st], notes[st])
	}
}

func printTimings(out io.Writer, timer *observ.Timer) {
	if out == nil || timer == nil {
		return
	}
	fmt.Fprint(out, timer.Summary())
}
