package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ivlev/joke2video/internal/generate"
	"github.com/ivlev/joke2video/internal/studio"
)

// Mode is what the keyboard currently edits
type Mode string

const (
	ModeBrowse    Mode = "browse"
	ModeTopic     Mode = "topic"
	ModeSetup     Mode = "setup"
	ModePunchline Mode = "punchline"
)

// Model is the scene editor: scene list, inline text editing, preview and export controls
type Model struct {
	Studio   *studio.Studio
	Pipeline *generate.Pipeline // nil: generation disabled (offline script)

	ctx context.Context

	Mode     Mode
	Selected int
	Input    string

	Status    generate.Status
	Exporting bool
	Message   string
	Err       error
}

func NewModel(ctx context.Context, s *studio.Studio, p *generate.Pipeline) Model {
	return Model{
		Studio:   s,
		Pipeline: p,
		ctx:      ctx,
		Mode:     ModeBrowse,
		Status:   generate.StatusIdle,
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) busy() bool {
	return m.Exporting || m.Status.Busy()
}
