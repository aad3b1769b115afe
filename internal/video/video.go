package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log"
	"os/exec"
	"sync"
)

var (
	ErrRecorderUnavailable = errors.New("recorder unavailable: ffmpeg not found")
	ErrNotRecording        = errors.New("recorder is not running")
)

// Format is an output container with its codecs
type Format struct {
	Name       string
	Ext        string
	MIME       string
	VideoCodec string
	AudioCodec string
}

var (
	WebM = Format{Name: "webm", Ext: "webm", MIME: "video/webm", VideoCodec: "libvpx-vp9", AudioCodec: "libopus"}
	MP4  = Format{Name: "mp4", Ext: "mp4", MIME: "video/mp4", VideoCodec: "libx264", AudioCodec: "aac"}
)

// FormatByName returns WebM for anything but "mp4"
func FormatByName(name string) Format {
	if name == "mp4" {
		return MP4
	}
	return WebM
}

type RecorderConfig struct {
	Width, Height int
	FPS           int
	Format        Format

	// Путь к аудио для муксинга; пусто = без звука
	AudioPath string

	// Bitrate in kbit/s for VP9 and VideoToolbox; Quality is CRF/CQ for x264/NVENC
	Bitrate int
	Quality int

	// MaxDuration caps the output (seconds, 0 = until Stop)
	MaxDuration float64
}

// Recorder turns a live stream of frames into an encoded file.
// Frames must be written in real time at cfg.FPS; Stop finalizes.
type Recorder interface {
	Start(ctx context.Context) error
	WriteFrame(img *image.RGBA) error
	Stop() ([]byte, error)
	Abort()
}

// FFmpegRecorder feeds raw RGBA frames to ffmpeg's stdin and collects the
// encoded output from stdout in chunks as it becomes available.
type FFmpegRecorder struct {
	cfg RecorderConfig

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer

	mu       sync.Mutex
	chunks   [][]byte
	readDone chan struct{}
	readErr  error
	running  bool
}

func NewFFmpegRecorder(cfg RecorderConfig) (*FFmpegRecorder, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecorderUnavailable, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.Format.Ext == "" {
		cfg.Format = WebM
	}
	return &FFmpegRecorder{cfg: cfg}, nil
}

func (r *FFmpegRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("recorder already started")
	}

	args := buildFFmpegArgs(r.cfg)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = &r.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	r.cmd = cmd
	r.stdin = stdin
	r.readDone = make(chan struct{})
	r.running = true
	go r.readChunks(stdout)
	return nil
}

// readChunks is the "data available" loop: each read becomes one chunk
func (r *FFmpegRecorder) readChunks(stdout io.Reader) {
	defer close(r.readDone)
	buf := make([]byte, 64*1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			r.mu.Lock()
			r.chunks = append(r.chunks, chunk)
			r.mu.Unlock()
		}
		if err != nil {
			if err != io.EOF {
				r.mu.Lock()
				r.readErr = err
				r.mu.Unlock()
			}
			return
		}
	}
}

func (r *FFmpegRecorder) WriteFrame(img *image.RGBA) error {
	r.mu.Lock()
	running, stdin := r.running, r.stdin
	r.mu.Unlock()
	if !running {
		return ErrNotRecording
	}
	return writeRawRGBA(stdin, img)
}

// Stop closes the frame input, waits for ffmpeg to flush and returns the whole recording
func (r *FFmpegRecorder) Stop() ([]byte, error) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	r.running = false
	r.mu.Unlock()

	r.stdin.Close()
	<-r.readDone
	if err := r.cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg wait error: %w\nLog: %s", err, r.stderr.String())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return nil, fmt.Errorf("read recording: %w", r.readErr)
	}
	data := bytes.Join(r.chunks, nil)
	log.Printf("[*] Запись завершена: %d чанков, %d байт", len(r.chunks), len(data))
	r.chunks = nil
	return data, nil
}

// Abort kills ffmpeg and drops everything recorded
func (r *FFmpegRecorder) Abort() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	r.stdin.Close()
	if r.cmd.Process != nil {
		r.cmd.Process.Kill()
	}
	<-r.readDone
	r.cmd.Wait()

	r.mu.Lock()
	r.chunks = nil
	r.mu.Unlock()
}

func buildFFmpegArgs(cfg RecorderConfig) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-framerate", fmt.Sprintf("%d", cfg.FPS),
		"-i", "-",
	}
	if cfg.AudioPath != "" {
		args = append(args, "-i", cfg.AudioPath, "-map", "0:v", "-map", "1:a")
	}
	if cfg.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%f", cfg.MaxDuration))
	}

	args = append(args, "-pix_fmt", "yuv420p", "-c:v", cfg.Format.VideoCodec)

	// Качество в зависимости от энкодера
	switch cfg.Format.VideoCodec {
	case "libvpx-vp9":
		bitrate := cfg.Bitrate
		if bitrate <= 0 {
			bitrate = 4000
		}
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate), "-deadline", "realtime", "-cpu-used", "8")
	case "h264_videotoolbox":
		bitrate := cfg.Quality * 100
		if cfg.Bitrate > 0 {
			bitrate = cfg.Bitrate
		}
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", cfg.Quality))
	default: // libx264
		quality := cfg.Quality
		if quality <= 0 {
			quality = 23
		}
		args = append(args, "-crf", fmt.Sprintf("%d", quality), "-preset", "veryfast")
	}

	if cfg.AudioPath != "" {
		args = append(args, "-c:a", cfg.Format.AudioCodec)
	}

	// MP4 в pipe требует фрагментированный контейнер
	if cfg.Format.Name == "mp4" {
		args = append(args, "-movflags", "frag_keyframe+empty_moov")
	}
	args = append(args, "-f", cfg.Format.Name, "pipe:1")
	return args
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
