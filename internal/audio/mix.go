package audio

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// MixContext routes a track to two places for the duration of an export:
// the capture destination (a file the recorder muxes in) and the monitor
// the user hears, which keeps being driven by the playback engine.
type MixContext struct {
	track   *Track
	monitor Player
	dest    string

	closeOnce sync.Once
}

// OpenMix prepares the capture destination in dir. A nil or empty track gives a
// silent context: Destination is "" and the recording has no audio stream.
func OpenMix(track *Track, monitor Player, dir string) (*MixContext, error) {
	if monitor == nil {
		monitor = Nop{}
	}
	m := &MixContext{track: track, monitor: monitor}
	if track == nil || len(track.Data) == 0 {
		return m, nil
	}

	path, err := track.WriteTemp(dir)
	if err != nil {
		return nil, fmt.Errorf("audio destination: %w", err)
	}
	m.dest = path
	return m, nil
}

// Destination is the path of the captured audio, or "" for a silent mix
func (m *MixContext) Destination() string { return m.dest }

func (m *MixContext) Monitor() Player { return m.monitor }

func (m *MixContext) Duration() float64 {
	if m.track == nil {
		return 0
	}
	return m.track.Duration
}

// Close releases the destination; safe to call more than once
func (m *MixContext) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.dest == "" {
			return
		}
		if rmErr := os.Remove(m.dest); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("[!] Не удалось удалить временное аудио %s: %v", m.dest, rmErr)
			err = rmErr
		}
	})
	return err
}
