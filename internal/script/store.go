package script

import (
	"fmt"
	"sync"
)

// Границы слайдера длительности в редакторе
const (
	MinEditDuration  = 3.0
	MaxEditDuration  = 12.0
	EditDurationStep = 0.5
)

// Store holds the ordered scene list edited by the user and read by the playback engine
type Store struct {
	mu        sync.RWMutex
	scenes    []Scene
	listeners []func([]Scene)
}

// NewStore creates a store owning a copy of scenes
func NewStore(scenes []Scene) *Store {
	return &Store{scenes: cloneScenes(scenes)}
}

// Scenes returns a snapshot of the current scene list
func (s *Store) Scenes() []Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneScenes(s.scenes)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scenes)
}

func (s *Store) Scene(i int) (Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.scenes) {
		return Scene{}, fmt.Errorf("scene index %d out of range [0,%d)", i, len(s.scenes))
	}
	return cloneScenes(s.scenes[i : i+1])[0], nil
}

// TotalDuration is the sum of scene durations, i.e. the natural playback length
func (s *Store) TotalDuration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TotalDuration(s.scenes)
}

// OnChange registers a listener called with a snapshot after every mutation
func (s *Store) OnChange(fn func([]Scene)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Replace swaps the whole list, used when a freshly generated script arrives
func (s *Store) Replace(scenes []Scene) {
	s.update(func(cur []Scene) ([]Scene, error) {
		return cloneScenes(scenes), nil
	})
}

func (s *Store) SetSetup(i int, text string) error {
	return s.updateScene(i, func(sc *Scene) error {
		sc.Setup = text
		return nil
	})
}

func (s *Store) SetPunchline(i int, text string) error {
	return s.updateScene(i, func(sc *Scene) error {
		sc.Punchline = text
		return nil
	})
}

func (s *Store) SetDuration(i int, seconds float64) error {
	if seconds <= 0 {
		return fmt.Errorf("scene %d: %w (got %.2f)", i+1, ErrInvalidDuration, seconds)
	}
	return s.updateScene(i, func(sc *Scene) error {
		sc.Duration = seconds
		return nil
	})
}

// NudgeDuration shifts a scene duration by steps of EditDurationStep, clamped to the editor range
func (s *Store) NudgeDuration(i int, steps int) error {
	return s.updateScene(i, func(sc *Scene) error {
		d := sc.Duration + float64(steps)*EditDurationStep
		if d < MinEditDuration {
			d = MinEditDuration
		}
		if d > MaxEditDuration {
			d = MaxEditDuration
		}
		sc.Duration = d
		return nil
	})
}

func (s *Store) SetImage(i int, data []byte) error {
	return s.updateScene(i, func(sc *Scene) error {
		sc.Image = append([]byte(nil), data...)
		return nil
	})
}

// Move removes the scene at from and inserts it at to.
// A target outside the list is ignored, like the disabled Up/Down buttons of the editor.
func (s *Store) Move(from, to int) bool {
	moved := false
	s.update(func(cur []Scene) ([]Scene, error) {
		if from < 0 || from >= len(cur) || to < 0 || to >= len(cur) || from == to {
			return nil, nil
		}
		sc := cur[from]
		out := make([]Scene, 0, len(cur))
		out = append(out, cur[:from]...)
		out = append(out, cur[from+1:]...)
		out = append(out[:to], append([]Scene{sc}, out[to:]...)...)
		moved = true
		return out, nil
	})
	return moved
}

func (s *Store) MoveUp(i int) bool   { return s.Move(i, i-1) }
func (s *Store) MoveDown(i int) bool { return s.Move(i, i+1) }

func (s *Store) updateScene(i int, fn func(*Scene) error) error {
	return s.update(func(cur []Scene) ([]Scene, error) {
		if i < 0 || i >= len(cur) {
			return nil, fmt.Errorf("scene index %d out of range [0,%d)", i, len(cur))
		}
		out := make([]Scene, len(cur))
		copy(out, cur)
		if err := fn(&out[i]); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// update applies fn under the lock; a nil slice from fn means "nothing changed"
func (s *Store) update(fn func([]Scene) ([]Scene, error)) error {
	s.mu.Lock()
	next, err := fn(s.scenes)
	if err != nil || next == nil {
		s.mu.Unlock()
		return err
	}
	s.scenes = next
	snapshot := cloneScenes(next)
	listeners := append([]func([]Scene){}, s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
	return nil
}
