package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ivlev/joke2video/internal/audio"
	"github.com/ivlev/joke2video/internal/capture"
	"github.com/ivlev/joke2video/internal/script"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubWriter struct {
	js  *script.JokeScript
	err error
}

func (w stubWriter) WriteJoke(ctx context.Context, topic string) (*script.JokeScript, error) {
	if w.err != nil {
		return nil, w.err
	}
	js := *w.js
	js.Topic = topic
	return &js, nil
}

type stubImages struct{ err error }

func (g stubImages) GenerateImages(ctx context.Context, prompts []string) ([][]byte, error) {
	if g.err != nil {
		return nil, g.err
	}
	out := make([][]byte, len(prompts))
	for i, p := range prompts {
		out[i] = []byte(p)
	}
	return out, nil
}

type stubNarrator struct{}

func (stubNarrator) Narrate(ctx context.Context, scenes []script.Scene) ([]byte, error) {
	return []byte(audio.NarrationText(scenes)), nil
}

func joke() *script.JokeScript {
	return &script.JokeScript{
		Title: "Purr-fect",
		Scenes: []script.Scene{
			{Setup: "s1", Punchline: "p1", ImagePrompt: "cat", Duration: 5},
			{Setup: "s2", Punchline: "p2", ImagePrompt: "dog", Duration: 7},
		},
	}
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad json %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	w := do(t, NewRouter(&Server{}), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || decode(t, w)["status"] != "ok" {
		t.Errorf("%d %s", w.Code, w.Body.String())
	}
}

func TestGenerateJoke(t *testing.T) {
	tests := []struct {
		name     string
		writer   stubWriter
		body     string
		wantCode int
		wantErr  string
		wantRaw  bool
	}{
		{"ok", stubWriter{js: joke()}, `{"topic":"cats"}`, 200, "", false},
		{"no topic", stubWriter{js: joke()}, `{}`, 400, "Topic required", false},
		{"bad json body", stubWriter{js: joke()}, `{`, 400, "Topic required", false},
		{"parse error", stubWriter{err: &script.ParseError{Raw: "nope", Err: errors.New("x")}}, `{"topic":"cats"}`, 500, "Failed to parse joke JSON", true},
		{"upstream", stubWriter{err: errors.New("OpenRouter error: 401")}, `{"topic":"cats"}`, 500, "OpenRouter error: 401", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(&Server{Writer: tt.writer})
			w := do(t, r, http.MethodPost, "/api/generate-joke", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("code = %d, body %s", w.Code, w.Body.String())
			}
			out := decode(t, w)
			if tt.wantErr != "" && out["error"] != tt.wantErr {
				t.Errorf("error = %v", out["error"])
			}
			if tt.wantRaw && out["raw"] != "nope" {
				t.Errorf("raw = %v", out["raw"])
			}
			if tt.wantCode == 200 && (out["title"] != "Purr-fect" || out["topic"] != "cats") {
				t.Errorf("body = %v", out)
			}
		})
	}
}

func TestGenerateImages(t *testing.T) {
	r := NewRouter(&Server{Images: stubImages{}})
	w := do(t, r, http.MethodPost, "/api/generate-images", `{"scenes":[{"imagePrompt":"cat"},{"imagePrompt":"dog"}]}`)
	if w.Code != 200 {
		t.Fatalf("code = %d %s", w.Code, w.Body.String())
	}
	images, _ := decode(t, w)["images"].([]any)
	if len(images) != 2 {
		t.Fatalf("images = %v", images)
	}
	for i, want := range []string{"cat", "dog"} {
		got, _ := base64.StdEncoding.DecodeString(images[i].(string))
		if string(got) != want {
			t.Errorf("image %d = %q", i, got)
		}
	}

	if w := do(t, r, http.MethodPost, "/api/generate-images", `{"scenes":"x"}`); w.Code != 400 {
		t.Errorf("non-array scenes: %d", w.Code)
	}

	r = NewRouter(&Server{Images: stubImages{err: errors.New("image generation failed: quota")}})
	w = do(t, r, http.MethodPost, "/api/generate-images", `{"scenes":[{"imagePrompt":"cat"}]}`)
	if w.Code != 500 || !strings.Contains(w.Body.String(), "quota") {
		t.Errorf("%d %s", w.Code, w.Body.String())
	}
}

func TestGenerateAudio(t *testing.T) {
	r := NewRouter(&Server{Narrator: stubNarrator{}})
	w := do(t, r, http.MethodPost, "/api/generate-audio", `{"scenes":[{"setup":"A","punchline":"B"},{"setup":"C","punchline":"D"}]}`)
	if w.Code != 200 {
		t.Fatalf("code = %d %s", w.Code, w.Body.String())
	}
	b64, _ := decode(t, w)["audio"].(string)
	got, _ := base64.StdEncoding.DecodeString(b64)
	if string(got) != "A ... B... ... C ... D" {
		t.Errorf("audio = %q", got)
	}
	if w := do(t, r, http.MethodPost, "/api/generate-audio", `{}`); w.Code != 400 {
		t.Errorf("missing scenes: %d", w.Code)
	}
}

func TestExport(t *testing.T) {
	var gotTrack *audio.Track
	var gotTitle string
	srv := &Server{Export: func(ctx context.Context, js *script.JokeScript, track *audio.Track) (*capture.Result, error) {
		gotTrack, gotTitle = track, js.Title
		return &capture.Result{FileName: capture.FileName(js.Title, "webm"), MIME: "video/webm", Data: []byte("vid")}, nil
	}}
	r := NewRouter(srv)

	body, _ := json.Marshal(exportRequest{Script: joke(), Audio: base64.StdEncoding.EncodeToString([]byte("mp3"))})
	w := do(t, r, http.MethodPost, "/api/export", string(body))
	if w.Code != 200 {
		t.Fatalf("code = %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "video/webm" {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "dad-joke-purr-fect.webm") {
		t.Errorf("disposition = %q", cd)
	}
	if w.Body.String() != "vid" || gotTitle != "Purr-fect" {
		t.Errorf("body %q title %q", w.Body.String(), gotTitle)
	}
	if gotTrack == nil || string(gotTrack.Data) != "mp3" || gotTrack.Format != "mp3" {
		t.Errorf("track = %+v", gotTrack)
	}

	empty, _ := json.Marshal(exportRequest{Script: &script.JokeScript{Title: "x"}})
	if w := do(t, r, http.MethodPost, "/api/export", string(empty)); w.Code != 400 {
		t.Errorf("empty script: %d", w.Code)
	}

	srv.Export = func(context.Context, *script.JokeScript, *audio.Track) (*capture.Result, error) {
		return nil, capture.ErrExportSetup
	}
	if w := do(t, r, http.MethodPost, "/api/export", string(body)); w.Code != 500 {
		t.Errorf("setup failure: %d", w.Code)
	}
}
