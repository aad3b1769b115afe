package script

import (
	"reflect"
	"testing"
)

func sampleScenes() []Scene {
	return []Scene{
		{Setup: "Why did the coffee file a police report?", Punchline: "It got mugged.", ImagePrompt: "coffee cup", Duration: 5},
		{Setup: "How does a latte say goodbye?", Punchline: "Brew-bye!", ImagePrompt: "latte waving", Duration: 5},
		{Setup: "What do you call sad coffee?", Punchline: "Depresso.", ImagePrompt: "gloomy espresso", Duration: 7},
	}
}

func TestMoveUpDownSwapsFirstTwo(t *testing.T) {
	original := sampleScenes()

	tests := []struct {
		name string
		op   func(s *Store) bool
	}{
		{"move scene 1 up", func(s *Store) bool { return s.MoveUp(1) }},
		{"move scene 0 down", func(s *Store) bool { return s.MoveDown(0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(original)
			if !tt.op(s) {
				t.Fatal("expected move to happen")
			}

			got := s.Scenes()
			want := []Scene{original[1], original[0], original[2]}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("unexpected order:\n got  %+v\n want %+v", got, want)
			}
		})
	}
}

func TestMoveOutOfRangeIsNoop(t *testing.T) {
	s := NewStore(sampleScenes())
	calls := 0
	s.OnChange(func([]Scene) { calls++ })

	if s.MoveUp(0) {
		t.Error("moving the first scene up should be ignored")
	}
	if s.MoveDown(2) {
		t.Error("moving the last scene down should be ignored")
	}
	if s.Move(5, 0) {
		t.Error("moving a missing scene should be ignored")
	}
	if calls != 0 {
		t.Errorf("listeners should not fire for no-op moves, got %d calls", calls)
	}
	if !reflect.DeepEqual(s.Scenes(), sampleScenes()) {
		t.Error("scene order changed after no-op moves")
	}
}

func TestMoveLastToFront(t *testing.T) {
	s := NewStore(sampleScenes())
	if !s.Move(2, 0) {
		t.Fatal("expected move")
	}
	got := s.Scenes()
	if got[0].Punchline != "Depresso." || got[1].Punchline != "It got mugged." || got[2].Punchline != "Brew-bye!" {
		t.Errorf("unexpected order: %q %q %q", got[0].Punchline, got[1].Punchline, got[2].Punchline)
	}
}

func TestEditFields(t *testing.T) {
	s := NewStore(sampleScenes())

	var last []Scene
	s.OnChange(func(sc []Scene) { last = sc })

	if err := s.SetSetup(1, "new setup"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPunchline(1, "new punchline"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetDuration(2, 9.5); err != nil {
		t.Fatal(err)
	}

	sc, err := s.Scene(1)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Setup != "new setup" || sc.Punchline != "new punchline" {
		t.Errorf("text not updated: %+v", sc)
	}
	if last == nil || last[2].Duration != 9.5 {
		t.Errorf("listener did not receive updated snapshot: %+v", last)
	}
	if got := s.TotalDuration(); got != 19.5 {
		t.Errorf("expected total 19.5, got %.2f", got)
	}

	if err := s.SetDuration(0, 0); err == nil {
		t.Error("expected error for zero duration")
	}
	if err := s.SetSetup(7, "x"); err == nil {
		t.Error("expected error for out of range index")
	}
}

func TestNudgeDurationClamps(t *testing.T) {
	s := NewStore(sampleScenes())

	tests := []struct {
		steps int
		want  float64
	}{
		{1, 5.5},
		{-1, 5.0},
		{-10, MinEditDuration},
		{100, MaxEditDuration},
	}
	for _, tt := range tests {
		if err := s.NudgeDuration(0, tt.steps); err != nil {
			t.Fatal(err)
		}
		sc, _ := s.Scene(0)
		if sc.Duration != tt.want {
			t.Errorf("after %+d steps: expected %.1f, got %.1f", tt.steps, tt.want, sc.Duration)
		}
	}
}

func TestScenesReturnsCopy(t *testing.T) {
	scenes := sampleScenes()
	scenes[0].Image = []byte{1, 2, 3}
	s := NewStore(scenes)

	snap := s.Scenes()
	snap[0].Setup = "mutated"
	snap[0].Image[0] = 9

	sc, _ := s.Scene(0)
	if sc.Setup == "mutated" || sc.Image[0] == 9 {
		t.Error("snapshot aliases store state")
	}
}
