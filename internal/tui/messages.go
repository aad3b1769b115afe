package tui

import (
	"time"

	"github.com/ivlev/joke2video/internal/capture"
	"github.com/ivlev/joke2video/internal/generate"
)

// TickMsg refreshes the playback line
type TickMsg struct {
	Time time.Time
}

// StatusMsg is a pipeline step change
type StatusMsg struct {
	Status generate.Status
}

// GeneratedMsg arrives once the pipeline finished and the studio holds the new joke
type GeneratedMsg struct {
	Err error
}

type ExportedMsg struct {
	Result *capture.Result
	Err    error
}
