package audio

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Player is the audible output of a track
type Player interface {
	Play() error
	Pause() error
	Rewind() error
}

// Nop is a silent player (headless runs, tests)
type Nop struct{}

func (Nop) Play() error   { return nil }
func (Nop) Pause() error  { return nil }
func (Nop) Rewind() error { return nil }

// FFPlay plays a file through ffplay without a window. Pause kills the
// process and remembers the position; Play resumes from it with -ss.
type FFPlay struct {
	Path string

	mu      sync.Mutex
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	offset  time.Duration
	started time.Time
}

func NewFFPlay(path string) (*FFPlay, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, fmt.Errorf("ffplay not found: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return &FFPlay{Path: path}, nil
}

func (p *FFPlay) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil {
		return nil
	}
	return p.startLocked()
}

func (p *FFPlay) startLocked() error {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, "ffplay",
		"-nodisp", "-autoexit", "-loglevel", "quiet",
		"-ss", fmt.Sprintf("%.3f", p.offset.Seconds()),
		p.Path,
	)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("ffplay start: %w", err)
	}
	p.cmd = cmd
	p.cancel = cancel
	p.started = time.Now()

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.cmd != cmd {
			return
		}
		// Дошли до конца файла
		if err != nil && ctx.Err() == nil {
			log.Printf("[!] ffplay: %v", err)
		}
		p.cmd = nil
		p.offset = 0
	}()
	return nil
}

func (p *FFPlay) stopLocked() {
	if p.cmd == nil {
		return
	}
	p.cancel()
	p.cmd = nil
}

func (p *FFPlay) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return nil
	}
	p.offset += time.Since(p.started)
	p.stopLocked()
	return nil
}

// Rewind seeks to the start; a playing track keeps playing from 0
func (p *FFPlay) Rewind() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = 0
	if p.cmd == nil {
		return nil
	}
	p.stopLocked()
	return p.startLocked()
}
