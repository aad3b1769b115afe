package capture

import (
	"image"
	"log"
	"sync"
	"time"

	"github.com/ivlev/joke2video/internal/system"
	"github.com/ivlev/joke2video/internal/video"
)

// Surface is what the frame stream samples from
type Surface interface {
	Bounds() image.Rectangle
	CaptureFrame(dst *image.RGBA) error
}

// FrameStream samples the surface at a fixed rate and feeds the recorder,
// like a canvas capture stream: it sees whatever is drawn at each sample.
// The recorder reads frames at a constant rate, so the stream keeps the frame
// count at elapsed*fps by repeating the current frame when writes fall behind.
type FrameStream struct {
	surface  Surface
	recorder video.Recorder
	interval time.Duration
	pool     *system.FramePool
	now      func() time.Time

	mu     sync.Mutex
	frames   int
	repeated int
	errs     int

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewFrameStream(surface Surface, rec video.Recorder, fps int, pool *system.FramePool) *FrameStream {
	if fps <= 0 {
		fps = 30
	}
	if pool == nil {
		pool = system.NewFramePool()
	}
	return &FrameStream{
		surface:  surface,
		recorder: rec,
		interval: time.Second / time.Duration(fps),
		pool:     pool,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *FrameStream) Start() {
	go s.run()
}

func (s *FrameStream) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	start := s.now()
	// Первый кадр сразу, не дожидаясь тика
	slots := s.fill(0, 1)
	for {
		select {
		case <-s.stop:
			// Добиваем кадры до момента остановки
			s.fill(slots, s.due(s.now().Sub(start)))
			return
		case <-ticker.C:
			slots = s.fill(slots, s.due(s.now().Sub(start)))
		}
	}
}

// due is the number of frame slots covered after elapsed, counting the first
// frame at zero
func (s *FrameStream) due(elapsed time.Duration) int {
	if elapsed < 0 {
		return 1
	}
	return int(elapsed/s.interval) + 1
}

// fill samples the surface once and writes it until want slots are covered.
// Ticks the ticker dropped while a write was blocked are filled with the
// same frame. Returns the number of slots covered.
func (s *FrameStream) fill(slots, want int) int {
	if slots >= want {
		return slots
	}
	bounds := s.surface.Bounds()
	frame := s.pool.Get(bounds)
	defer s.pool.Put(frame)

	if err := s.surface.CaptureFrame(frame); err != nil {
		s.fail(err)
		return want
	}
	if repeat := want - slots - 1; repeat > 0 {
		s.mu.Lock()
		s.repeated += repeat
		s.mu.Unlock()
	}
	for ; slots < want; slots++ {
		if err := s.recorder.WriteFrame(frame); err != nil {
			s.fail(err)
			return want
		}
		s.mu.Lock()
		s.frames++
		s.mu.Unlock()
	}
	return slots
}

func (s *FrameStream) fail(err error) {
	s.mu.Lock()
	s.errs++
	first := s.errs == 1
	s.mu.Unlock()
	if first {
		log.Printf("[!] Capture frame: %v", err)
	}
}

// Stop ends sampling; no WriteFrame happens after it returns
func (s *FrameStream) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *FrameStream) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Repeated is the number of frames written again to cover dropped ticks
func (s *FrameStream) Repeated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeated
}
