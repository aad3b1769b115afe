package tui

import (
	"fmt"
	"strings"
)

const (
	textFooterBrowse = "↑/↓ select | K/J move | +/- duration | e setup | p punchline | space play/stop | x export | g new joke | q quit"
	textFooterInput  = "enter save | esc cancel"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	title := m.Studio.Title()
	if title == "" {
		title = "Dad Joke Video Studio"
	}
	b.WriteString(TitleStyle.Render("🎬 " + title))
	b.WriteString("\n")

	if line := m.statusText(); line != "" {
		b.WriteString(line)
		b.WriteString("\n\n")
	}

	scenes := m.Studio.Store.Scenes()
	if len(scenes) == 0 {
		b.WriteString(InfoStyle.Render("No scenes yet. Press 'g' to write a joke."))
		b.WriteString("\n\n")
	}

	state := m.Studio.Engine.State()
	var list strings.Builder
	for i, sc := range scenes {
		marker := "  "
		if state.Playing && state.SceneIndex == i {
			marker = "▶ "
		}
		head := fmt.Sprintf("%sScene %d  %.1fs", marker, i+1, sc.Duration)
		if i == m.Selected {
			head = SelectedStyle.Render(head)
		}
		list.WriteString(head + "\n")

		setup, punch := sc.Setup, sc.Punchline
		if i == m.Selected && m.Mode == ModeSetup {
			setup = m.Input + "▏"
		}
		if i == m.Selected && m.Mode == ModePunchline {
			punch = m.Input + "▏"
		}
		list.WriteString("   " + setup + "\n")
		list.WriteString("   " + PunchlineStyle.Render(punch) + "\n")
	}
	if len(scenes) > 0 {
		b.WriteString(BoxStyle.Render(strings.TrimRight(list.String(), "\n")))
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render(fmt.Sprintf("Total: %.1fs | %s", m.Studio.Store.TotalDuration(), m.playbackText())))
		b.WriteString("\n\n")
	}

	if m.Mode == ModeTopic {
		b.WriteString("Topic: " + m.Input + "▏\n\n")
	}

	if m.Mode == ModeBrowse {
		b.WriteString(InfoStyle.Render(textFooterBrowse))
	} else {
		b.WriteString(InfoStyle.Render(textFooterInput))
	}
	return b.String()
}

func (m Model) statusText() string {
	switch {
	case m.Err != nil:
		return ErrorStyle.Render(fmt.Sprintf("❌ %v", m.Err))
	case m.Status.Busy():
		return StatusStyle.Render("⏳ " + m.Status.Message())
	case m.Exporting:
		return StatusStyle.Render("⏺ " + m.Message)
	case m.Message != "":
		return StatusStyle.Render("✅ " + m.Message)
	}
	return ""
}

func (m Model) playbackText() string {
	st := m.Studio.Engine.State()
	if !st.Playing {
		return "stopped"
	}
	reveal := ""
	if st.PunchlineRevealed {
		reveal = " + punchline"
	}
	return fmt.Sprintf("playing scene %d/%d%s", st.SceneIndex+1, m.Studio.Store.Len(), reveal)
}
