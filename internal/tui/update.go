package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ivlev/joke2video/internal/generate"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Studio.Engine.Stop()
			return m, tea.Quit
		}
		if m.Mode != ModeBrowse {
			return m.handleInput(msg)
		}
		return m.handleKeyPress(msg)
	case TickMsg:
		if m.Pipeline != nil {
			m.Status = m.Pipeline.Status()
		}
		return m, tickCmd()
	case StatusMsg:
		m.Status = msg.Status
		return m, nil
	case GeneratedMsg:
		return m.handleGenerated(msg)
	case ExportedMsg:
		return m.handleExported(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input in browse mode
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.Studio.Store.Len()

	switch msg.String() {
	case "q":
		m.Studio.Engine.Stop()
		return m, tea.Quit
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < n-1 {
			m.Selected++
		}
	case "shift+up", "K":
		if m.Studio.MoveUp(m.Selected) {
			m.Selected--
		}
	case "shift+down", "J":
		if m.Studio.MoveDown(m.Selected) {
			m.Selected++
		}
	case "+", "=", "right", "l":
		m.nudge(1)
	case "-", "left", "h":
		m.nudge(-1)
	case "e":
		if sc, err := m.Studio.Store.Scene(m.Selected); err == nil {
			m.Mode, m.Input = ModeSetup, sc.Setup
		}
	case "p":
		if sc, err := m.Studio.Store.Scene(m.Selected); err == nil {
			m.Mode, m.Input = ModePunchline, sc.Punchline
		}
	case " ", "space":
		if m.Exporting {
			return m, nil
		}
		if m.Studio.Engine.Playing() {
			m.Studio.Engine.Stop()
		} else if err := m.Studio.Engine.Play(); err != nil {
			m.Err = err
		}
	case "s":
		if !m.Exporting {
			m.Studio.Engine.Stop()
		}
	case "x":
		if m.busy() || n == 0 {
			return m, nil
		}
		m.Exporting = true
		m.Err = nil
		m.Message = "Recording video..."
		return m, exportCmd(m.ctx, m.Studio)
	case "g":
		if m.Pipeline == nil || m.busy() {
			return m, nil
		}
		m.Mode, m.Input = ModeTopic, ""
	}
	return m, nil
}

func (m *Model) nudge(steps int) {
	if err := m.Studio.Store.NudgeDuration(m.Selected, steps); err != nil {
		m.Err = err
	}
}

// handleInput edits the topic or the selected scene's text
func (m Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.Mode, m.Input = ModeBrowse, ""
		return m, nil
	case tea.KeyEnter:
		return m.commitInput()
	case tea.KeyBackspace:
		if r := []rune(m.Input); len(r) > 0 {
			m.Input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.Input += " "
	case tea.KeyRunes:
		m.Input += string(msg.Runes)
	}
	return m, nil
}

func (m Model) commitInput() (tea.Model, tea.Cmd) {
	mode, text := m.Mode, m.Input
	m.Mode, m.Input = ModeBrowse, ""

	switch mode {
	case ModeSetup:
		if err := m.Studio.Store.SetSetup(m.Selected, text); err != nil {
			m.Err = err
		}
	case ModePunchline:
		if err := m.Studio.Store.SetPunchline(m.Selected, text); err != nil {
			m.Err = err
		}
	case ModeTopic:
		topic := strings.TrimSpace(text)
		if topic == "" {
			return m, nil
		}
		m.Studio.Engine.Stop()
		m.Err = nil
		m.Message = ""
		m.Status = generate.StatusGeneratingJoke
		return m, generateCmd(m.ctx, m.Pipeline, m.Studio, topic)
	}
	return m, nil
}

func (m Model) handleGenerated(msg GeneratedMsg) (tea.Model, tea.Cmd) {
	m.Status = generate.StatusIdle
	if m.Pipeline != nil {
		m.Status = m.Pipeline.Status()
	}
	if msg.Err != nil {
		m.Err = msg.Err
		return m, nil
	}
	m.Selected = 0
	m.Message = fmt.Sprintf("%q is ready", m.Studio.Title())
	return m, nil
}

func (m Model) handleExported(msg ExportedMsg) (tea.Model, tea.Cmd) {
	m.Exporting = false
	if msg.Err != nil {
		m.Err = msg.Err
		m.Message = ""
		return m, nil
	}
	where := msg.Result.FileName
	if msg.Result.Path != "" {
		where = msg.Result.Path
	}
	m.Message = fmt.Sprintf("Saved %s (%.1fs, %d frames)", where, msg.Result.Duration.Seconds(), msg.Result.Frames)
	return m, nil
}
