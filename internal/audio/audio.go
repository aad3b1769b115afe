package audio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ivlev/joke2video/internal/script"
)

var ErrEmptyTrack = errors.New("audio track is empty")

// Track is one encoded narration covering the whole video
type Track struct {
	Data   []byte
	Format string // mp3, wav, ...

	// Duration in seconds; 0 when unknown
	Duration float64
}

func NewTrack(data []byte, format string) *Track {
	if format == "" {
		format = "mp3"
	}
	return &Track{Data: data, Format: format}
}

// LoadTrack reads an audio file and probes its duration
func LoadTrack(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyTrack)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	t := NewTrack(data, format)

	if d, err := Probe(path); err == nil {
		t.Duration = d
	}
	return t, nil
}

// WriteTemp stores the track in dir under a unique name so ffmpeg/ffplay can read it
func (t *Track) WriteTemp(dir string) (string, error) {
	if t == nil || len(t.Data) == 0 {
		return "", ErrEmptyTrack
	}
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("narration_%s.%s", uuid.NewString(), t.Format))
	if err := os.WriteFile(path, t.Data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe returns the duration of a media file in seconds (ffprobe)
func Probe(path string) (float64, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(out string) (float64, error) {
	var res probeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return 0, fmt.Errorf("ffprobe output: %w", err)
	}
	if res.Format.Duration == "" {
		return 0, errors.New("ffprobe output has no duration")
	}
	return strconv.ParseFloat(res.Format.Duration, 64)
}

// NarrationText joins every scene into one script for the speech synthesizer:
// "setup ... punchline..." per scene, scenes separated by " ... "
func NarrationText(scenes []script.Scene) string {
	parts := make([]string, len(scenes))
	for i, s := range scenes {
		pause := ""
		if i < len(scenes)-1 {
			pause = "..."
		}
		parts[i] = fmt.Sprintf("%s ... %s%s", s.Setup, s.Punchline, pause)
	}
	return strings.Join(parts, " ... ")
}
