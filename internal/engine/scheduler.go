package engine

import (
	"sync"
	"time"
)

// Clock is the wall clock the engine measures elapsed scene time with
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Task is a handle to a repeating callback
type Task interface {
	Cancel()
}

// Scheduler runs fn once per display refresh until the task is cancelled
type Scheduler interface {
	Every(fn func()) Task
}

// TickerScheduler drives ticks from a time.Ticker goroutine
type TickerScheduler struct {
	Interval time.Duration
}

// NewTickerScheduler returns a scheduler firing hz times per second
func NewTickerScheduler(hz int) *TickerScheduler {
	if hz <= 0 {
		hz = 60
	}
	return &TickerScheduler{Interval: time.Second / time.Duration(hz)}
}

func (s *TickerScheduler) Every(fn func()) Task {
	t := &tickerTask{done: make(chan struct{})}
	ticker := time.NewTicker(s.Interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return t
}

type tickerTask struct {
	done chan struct{}
	once sync.Once
}

func (t *tickerTask) Cancel() {
	t.once.Do(func() { close(t.done) })
}
