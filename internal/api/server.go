package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivlev/joke2video/internal/audio"
	"github.com/ivlev/joke2video/internal/capture"
	"github.com/ivlev/joke2video/internal/generate"
	"github.com/ivlev/joke2video/internal/script"
)

// ExportFunc records a joke to a video file (see studio.ExportScript)
type ExportFunc func(ctx context.Context, js *script.JokeScript, narration *audio.Track) (*capture.Result, error)

type Server struct {
	Writer   generate.JokeWriter
	Images   generate.ImageGenerator
	Narrator generate.Narrator
	Export   ExportFunc
}

type topicRequest struct {
	Topic string `json:"topic"`
}

type scenesRequest struct {
	Scenes []script.Scene `json:"scenes"`
}

type exportRequest struct {
	Script *script.JokeScript `json:"script"`
	Audio  string             `json:"audio,omitempty"` // base64 mp3
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", handleHealth)

	g := r.Group("/api")
	g.POST("/generate-joke", s.handleGenerateJoke)
	g.POST("/generate-images", s.handleGenerateImages)
	g.POST("/generate-audio", s.handleGenerateAudio)
	g.POST("/export", s.handleExport)
	return r
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleGenerateJoke(c *gin.Context) {
	var req topicRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Topic required"})
		return
	}
	if s.Writer == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "joke writer not configured"})
		return
	}

	js, err := s.Writer.WriteJoke(c.Request.Context(), req.Topic)
	if err != nil {
		var perr *script.ParseError
		if errors.As(err, &perr) {
			log.Printf("[!] Ответ LLM не разобран: %v", perr.Err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse joke JSON", "raw": perr.Raw})
			return
		}
		if errors.Is(err, generate.ErrEmptyTopic) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Topic required"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, js)
}

func (s *Server) handleGenerateImages(c *gin.Context) {
	var req scenesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Scenes == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Scenes array required"})
		return
	}
	if s.Images == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "image generator not configured"})
		return
	}

	js := script.JokeScript{Scenes: req.Scenes}
	images, err := s.Images.GenerateImages(c.Request.Context(), js.Prompts())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = base64.StdEncoding.EncodeToString(img)
	}
	c.JSON(http.StatusOK, gin.H{"images": out})
}

func (s *Server) handleGenerateAudio(c *gin.Context) {
	var req scenesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Scenes == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Scenes array required"})
		return
	}
	if s.Narrator == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "narrator not configured"})
		return
	}

	data, err := s.Narrator.Narrate(c.Request.Context(), req.Scenes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audio": base64.StdEncoding.EncodeToString(data)})
}

// handleExport blocks for the whole recording (Σ durations + buffer) and
// returns the video as an attachment.
func (s *Server) handleExport(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Script == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Script required"})
		return
	}
	if err := req.Script.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var track *audio.Track
	if req.Audio != "" {
		data, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("audio: %v", err)})
			return
		}
		track = audio.NewTrack(data, "mp3")
	}
	if s.Export == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export not configured"})
		return
	}

	res, err := s.Export(c.Request.Context(), req.Script, track)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("[+++] Экспорт %s: %d байт", res.FileName, len(res.Data))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.FileName))
	c.Data(http.StatusOK, res.MIME, res.Data)
}

func respondError(c *gin.Context, err error) {
	log.Printf("[!] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
