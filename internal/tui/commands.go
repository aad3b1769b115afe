package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ivlev/joke2video/internal/audio"
	"github.com/ivlev/joke2video/internal/generate"
	"github.com/ivlev/joke2video/internal/studio"
)

// tickCmd refreshes the view every 100ms while the program runs
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// generateCmd runs the whole pipeline and loads the result into the studio
func generateCmd(ctx context.Context, p *generate.Pipeline, s *studio.Studio, topic string) tea.Cmd {
	return func() tea.Msg {
		res, err := p.Run(ctx, topic)
		if err != nil {
			return GeneratedMsg{Err: err}
		}
		if err := s.Load(ctx, res.Script); err != nil {
			return GeneratedMsg{Err: err}
		}
		s.SetNarration(audio.NewTrack(res.Audio, "mp3"))
		return GeneratedMsg{}
	}
}

func exportCmd(ctx context.Context, s *studio.Studio) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Export(ctx)
		return ExportedMsg{Result: res, Err: err}
	}
}
