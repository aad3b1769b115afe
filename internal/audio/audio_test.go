package audio

import (
	"errors"
	"os"
	"testing"

	"github.com/ivlev/joke2video/internal/script"
)

func TestNarrationText(t *testing.T) {
	tests := []struct {
		name   string
		scenes []script.Scene
		want   string
	}{
		{
			name:   "single",
			scenes: []script.Scene{{Setup: "A", Punchline: "B"}},
			want:   "A ... B",
		},
		{
			name: "three scenes",
			scenes: []script.Scene{
				{Setup: "Why?", Punchline: "Because."},
				{Setup: "How?", Punchline: "Like this."},
				{Setup: "When?", Punchline: "Now!"},
			},
			want: "Why? ... Because.... ... How? ... Like this.... ... When? ... Now!",
		},
		{
			name: "empty",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NarrationText(tt.scenes); got != tt.want {
				t.Errorf("NarrationText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseProbe(t *testing.T) {
	d, err := parseProbe(`{"streams":[],"format":{"filename":"a.mp3","duration":"17.502000"}}`)
	if err != nil {
		t.Fatal(err)
	}
	if d != 17.502 {
		t.Errorf("duration = %f, want 17.502", d)
	}

	if _, err := parseProbe(`{"format":{}}`); err == nil {
		t.Error("expected error for missing duration")
	}
	if _, err := parseProbe(`not json`); err == nil {
		t.Error("expected error for garbage output")
	}
}

func TestMixContextDestination(t *testing.T) {
	dir := t.TempDir()
	track := NewTrack([]byte("ID3 fake mp3"), "")
	track.Duration = 12.5

	m, err := OpenMix(track, nil, dir)
	if err != nil {
		t.Fatalf("OpenMix: %v", err)
	}
	dest := m.Destination()
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("destination not written: %v", err)
	}
	if string(data) != "ID3 fake mp3" {
		t.Errorf("destination content = %q", data)
	}
	if m.Duration() != 12.5 {
		t.Errorf("duration = %f", m.Duration())
	}
	if _, ok := m.Monitor().(Nop); !ok {
		t.Error("nil monitor should fall back to Nop")
	}

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("Close should remove the destination")
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestSilentMix(t *testing.T) {
	m, err := OpenMix(nil, Nop{}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if m.Destination() != "" {
		t.Errorf("silent mix should have no destination, got %q", m.Destination())
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	var empty *Track
	if _, err := empty.WriteTemp(t.TempDir()); !errors.Is(err, ErrEmptyTrack) {
		t.Errorf("expected ErrEmptyTrack, got %v", err)
	}
}
