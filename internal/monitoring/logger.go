package monitoring

import (
	"log"
	"time"

	"github.com/banshee-data/coverage.planner/internal/timeutil"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs a recoverable problem, such as a region dropped from a plan.
func Warnf(format string, v ...interface{}) {
	Logf("WARN "+format, v...)
}

// StageTimer measures one pipeline stage. Stop logs and returns the
// elapsed time.
type StageTimer struct {
	clock timeutil.Clock
	stage string
	start time.Time
}

// StartStage begins timing stage on clock. A nil clock uses wall time.
func StartStage(clock timeutil.Clock, stage string) *StageTimer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &StageTimer{clock: clock, stage: stage, start: clock.Now()}
}

// Stop logs the elapsed time of the stage and returns it.
func (t *StageTimer) Stop() time.Duration {
	elapsed := t.clock.Since(t.start)
	Logf("stage %s took %s", t.stage, elapsed)
	return elapsed
}
