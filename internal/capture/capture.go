package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/joke2video/internal/audio"
	"github.com/ivlev/joke2video/internal/script"
	"github.com/ivlev/joke2video/internal/system"
	"github.com/ivlev/joke2video/internal/video"
)

// ExportBuffer is the minimum time recorded past the last scene so the encoder can flush
const ExportBuffer = 500 * time.Millisecond

var (
	ErrExportSetup      = errors.New("export setup failed")
	ErrExportInProgress = errors.New("export already in progress")
)

// Playback is the part of the playback engine the exporter drives
type Playback interface {
	Surface
	HasSurface() bool
	Playing() bool
	Play() error
	Stop()
}

// RecorderFactory creates a recorder for one export
type RecorderFactory func(cfg video.RecorderConfig) (video.Recorder, error)

// Timer is the scheduled stop handle (*time.Timer)
type Timer interface {
	Stop() bool
}

type Options struct {
	FPS     int
	Format  video.Format
	Quality int
	Bitrate int

	// Buffer past Σ durations; values under ExportBuffer are raised to it
	Buffer time.Duration

	// OutputDir receives the file; empty keeps the result in memory only
	OutputDir string
	TempDir   string

	ShowStats    bool
	BenchmarkLog string
	BuildVersion string
}

// CaptureSession is one running export. Chunks belong to the recorder until finalization.
type CaptureSession struct {
	ID             string
	Title          string
	StartedAt      time.Time
	ExpectedStopAt time.Time
}

type Result struct {
	Session  CaptureSession
	FileName string
	Path     string
	MIME     string
	Data     []byte
	Duration time.Duration
	Frames   int
}

type Exporter struct {
	engine Playback
	store  *script.Store
	opts   Options
	pool   *system.FramePool

	NewRecorder RecorderFactory
	AfterFunc   func(d time.Duration, f func()) Timer

	mu      sync.Mutex
	track   *audio.Track
	monitor audio.Player
	active  *CaptureSession
}

func NewExporter(engine Playback, store *script.Store, opts Options) *Exporter {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.Format.Ext == "" {
		opts.Format = video.WebM
	}
	if opts.Buffer < ExportBuffer {
		opts.Buffer = ExportBuffer
	}
	if opts.BenchmarkLog == "" {
		opts.BenchmarkLog = "benchmark.log"
	}
	return &Exporter{
		engine: engine,
		store:  store,
		opts:   opts,
		pool:   system.NewFramePool(),
		NewRecorder: func(cfg video.RecorderConfig) (video.Recorder, error) {
			return video.NewFFmpegRecorder(cfg)
		},
		AfterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
}

// SetTrack sets the narration muxed into exports; monitor is what the user hears
func (x *Exporter) SetTrack(track *audio.Track, monitor audio.Player) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.track = track
	x.monitor = monitor
}

// Active returns the running session, if any
func (x *Exporter) Active() (CaptureSession, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.active == nil {
		return CaptureSession{}, false
	}
	return *x.active, true
}

// Export replays every scene from the first one while recording the surface and
// the narration, and returns the file once Σ durations + buffer has elapsed.
// A running playback is restarted from scene 0. Setup errors wrap ErrExportSetup
// and leave the engine as it was.
func (x *Exporter) Export(ctx context.Context, title string) (*Result, error) {
	x.mu.Lock()
	if x.active != nil {
		x.mu.Unlock()
		return nil, ErrExportInProgress
	}
	session := &CaptureSession{ID: uuid.NewString(), Title: title}
	x.active = session
	track, monitor := x.track, x.monitor
	x.mu.Unlock()

	defer func() {
		x.mu.Lock()
		x.active = nil
		x.mu.Unlock()
	}()

	// 1. Проверки и аудио-контекст
	if x.engine == nil || !x.engine.HasSurface() {
		return nil, fmt.Errorf("%w: no surface", ErrExportSetup)
	}
	scenes := x.store.Scenes()
	js := script.JokeScript{Title: title, Scenes: scenes}
	if err := js.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportSetup, err)
	}
	total := time.Duration(script.TotalDuration(scenes) * float64(time.Second))
	length := total + x.opts.Buffer

	mix, err := audio.OpenMix(track, monitor, x.opts.TempDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportSetup, err)
	}

	// 2-3. Рекордер запускается до воспроизведения
	bounds := x.engine.Bounds()
	rec, err := x.NewRecorder(video.RecorderConfig{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		FPS:         x.opts.FPS,
		Format:      x.opts.Format,
		AudioPath:   mix.Destination(),
		Quality:     x.opts.Quality,
		Bitrate:     x.opts.Bitrate,
		MaxDuration: length.Seconds(),
	})
	if err != nil {
		mix.Close()
		return nil, fmt.Errorf("%w: %v", ErrExportSetup, err)
	}
	if err := rec.Start(ctx); err != nil {
		mix.Close()
		return nil, fmt.Errorf("%w: %v", ErrExportSetup, err)
	}

	if x.engine.Playing() {
		log.Printf("[*] Экспорт во время воспроизведения: перезапуск с первой сцены")
		x.engine.Stop()
	}

	// Play рисует первую сцену, поэтому поток стартует после него
	if err := x.engine.Play(); err != nil {
		rec.Abort()
		mix.Close()
		return nil, fmt.Errorf("start playback: %w", err)
	}
	stream := NewFrameStream(x.engine, rec, x.opts.FPS, x.pool)
	stream.Start()

	x.mu.Lock()
	session.StartedAt = time.Now()
	session.ExpectedStopAt = session.StartedAt.Add(length)
	x.mu.Unlock()
	fmt.Printf("[*] Экспорт %s: %d сцен, %.2fs + %.2fs буфер\n",
		session.ID, len(scenes), total.Seconds(), x.opts.Buffer.Seconds())

	// 4-6. Единственная финализация: по таймеру или по отмене контекста
	var (
		once   sync.Once
		result *Result
		resErr error
		done   = make(chan struct{})
	)
	finalize := func() {
		once.Do(func() {
			defer close(done)
			defer mix.Close()

			stream.Stop()
			if n := stream.Repeated(); n > 0 {
				log.Printf("[!] Энкодер не успевал: %d кадров повторено", n)
			}
			data, err := rec.Stop()
			x.engine.Stop()
			if err != nil {
				resErr = fmt.Errorf("finalize recording: %w", err)
				return
			}
			result = &Result{
				Session:  *session,
				FileName: FileName(title, x.opts.Format.Ext),
				MIME:     x.opts.Format.MIME,
				Data:     data,
				Duration: length,
				Frames:   stream.Frames(),
			}
			if x.opts.OutputDir != "" {
				path := filepath.Join(x.opts.OutputDir, result.FileName)
				if err := os.WriteFile(path, data, 0644); err != nil {
					resErr = fmt.Errorf("write %s: %w", path, err)
					return
				}
				result.Path = path
			}
		})
	}
	abort := func() {
		once.Do(func() {
			defer close(done)
			defer mix.Close()
			stream.Stop()
			rec.Abort()
			x.engine.Stop()
			resErr = ctx.Err()
		})
	}

	timer := x.AfterFunc(length, finalize)
	select {
	case <-done:
	case <-ctx.Done():
		timer.Stop()
		abort()
		<-done
	}

	if resErr != nil {
		return nil, resErr
	}
	wall := time.Since(session.StartedAt)
	x.report(result, wall)
	return result, nil
}

func (x *Exporter) report(res *Result, wall time.Duration) {
	if !x.opts.ShowStats {
		return
	}
	stats, err := system.CurrentStats()
	if err != nil {
		log.Printf("[!] Process stats: %v", err)
	}
	fmt.Printf("--- [EXPORT REPORT] ---\n"+
		"Build: %s\n"+
		"Session: %s\n"+
		"Wall Time: %.2fs (expected %.2fs)\n"+
		"Frames: %d\n"+
		"Bytes: %d\n"+
		"%s\n"+
		"-----------------------\n",
		x.opts.BuildVersion, res.Session.ID, wall.Seconds(), res.Duration.Seconds(), res.Frames, len(res.Data), stats)

	entry := fmt.Sprintf("Build: %s | File: %s | Wall: %.2fs | Expected: %.2fs | Frames: %d | Bytes: %d | %s",
		x.opts.BuildVersion, res.FileName, wall.Seconds(), res.Duration.Seconds(), res.Frames, len(res.Data), stats)
	if err := system.AppendBenchmark(x.opts.BenchmarkLog, entry); err != nil {
		fmt.Printf("[!] Не удалось записать %s: %v\n", x.opts.BenchmarkLog, err)
	}
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// FileName builds "dad-joke-<slug>.<ext>" from the joke title
func FileName(title, ext string) string {
	slug := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(title), "-"), "-")
	name := "dad-joke"
	if slug != "" {
		name += "-" + slug
	}
	return name + "." + ext
}
