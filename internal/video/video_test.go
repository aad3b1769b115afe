package video

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"
)

func argValue(args []string, flag string) (string, bool) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1], true
		}
	}
	return "", false
}

func TestBuildFFmpegArgs(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RecorderConfig
		want    map[string]string
		absent  []string
		tail    string
		hasMaps bool
	}{
		{
			name: "webm with narration",
			cfg: RecorderConfig{
				Width: 540, Height: 960, FPS: 30, Format: WebM,
				AudioPath: "/tmp/narration.mp3", MaxDuration: 17.5,
			},
			want: map[string]string{
				"-video_size": "540x960",
				"-framerate":  "30",
				"-c:v":        "libvpx-vp9",
				"-b:v":        "4000k",
				"-c:a":        "libopus",
				"-t":          "17.500000",
				"-f":          "rawvideo",
			},
			absent:  []string{"-movflags", "-crf"},
			tail:    "webm pipe:1",
			hasMaps: true,
		},
		{
			name: "silent mp4",
			cfg:  RecorderConfig{Width: 720, Height: 1280, FPS: 25, Format: MP4, Quality: 20},
			want: map[string]string{
				"-video_size": "720x1280",
				"-c:v":        "libx264",
				"-crf":        "20",
				"-movflags":   "frag_keyframe+empty_moov",
			},
			absent: []string{"-c:a", "-t", "-map"},
			tail:   "mp4 pipe:1",
		},
		{
			name: "videotoolbox",
			cfg: RecorderConfig{
				Width: 540, Height: 960, FPS: 30, Quality: 75,
				Format: Format{Name: "mp4", Ext: "mp4", VideoCodec: "h264_videotoolbox", AudioCodec: "aac"},
			},
			want: map[string]string{"-b:v": "7500k"},
			tail: "mp4 pipe:1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := buildFFmpegArgs(tt.cfg)
			t.Logf("ffmpeg %s", strings.Join(args, " "))

			for flag, want := range tt.want {
				got, ok := argValue(args, flag)
				if !ok || got != want {
					t.Errorf("%s = %q, want %q", flag, got, want)
				}
			}
			for _, flag := range tt.absent {
				if _, ok := argValue(args, flag); ok {
					t.Errorf("unexpected %s", flag)
				}
			}
			if !strings.HasSuffix(strings.Join(args, " "), tt.tail) {
				t.Errorf("args should end with %q", tt.tail)
			}
			joined := strings.Join(args, " ")
			if tt.hasMaps && !strings.Contains(joined, "-map 0:v -map 1:a") {
				t.Error("audio input should be mapped")
			}
		})
	}
}

func TestWriteRawRGBA(t *testing.T) {
	full := image.NewRGBA(image.Rect(0, 0, 8, 8))
	full.Set(2, 2, color.RGBA{1, 2, 3, 4})

	var buf bytes.Buffer
	if err := writeRawRGBA(&buf, full); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 8*8*4 {
		t.Errorf("wrote %d bytes, want %d", buf.Len(), 8*8*4)
	}

	// Подызображение с ненулевым началом перекладывается в плотный буфер
	sub := full.SubImage(image.Rect(2, 2, 6, 6)).(*image.RGBA)
	buf.Reset()
	if err := writeRawRGBA(&buf, sub); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 4*4*4 {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), 4*4*4)
	}
	if got := buf.Bytes()[:4]; !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("first pixel = %v, want [1 2 3 4]", got)
	}
}

func TestFormatByName(t *testing.T) {
	if FormatByName("mp4") != MP4 {
		t.Error("mp4 should map to MP4")
	}
	if FormatByName("") != WebM || FormatByName("webm") != WebM {
		t.Error("default format should be WebM")
	}
}
