package pipeline

import (
	"fmt"
	"time"
)

// Stage is where a cycle currently is.
type Stage int

// A cycle moves Idle, Acquiring, Filtering, Fitting, Smoothing and back to Idle.
const (
	StageIdle Stage = iota
	StageAcquiring
	StageFiltering
	StageFitting
	StageSmoothing
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAcquiring:
		return "acquiring"
	case StageFiltering:
		return "filtering"
	case StageFitting:
		return "fitting"
	case StageSmoothing:
		return "smoothing"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// StageDurations are the time spent in each stage of one cycle. Stages that did not run are zero.
type StageDurations struct {
	Acquiring time.Duration
	Filtering time.Duration
	Fitting   time.Duration
	Smoothing time.Duration
}

func (sd *StageDurations) set(s Stage, d time.Duration) {
	switch s {
	case StageAcquiring:
		sd.Acquiring = d
	case StageFiltering:
		sd.Filtering = d
	case StageFitting:
		sd.Fitting = d
	case StageSmoothing:
		sd.Smoothing = d
	case StageIdle:
	}
}
