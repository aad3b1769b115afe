package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Кадр и захват
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Preset      string `yaml:"preset"`
	FPS         int    `yaml:"fps"`
	RefreshRate int    `yaml:"refreshRate"`

	// Экспорт
	Format       string  `yaml:"format"`
	VideoEncoder string  `yaml:"videoEncoder"`
	Quality      int     `yaml:"quality"`
	Bitrate      int     `yaml:"bitrate"`
	ExportBuffer float64 `yaml:"exportBuffer"`
	OutputDir    string  `yaml:"outputDir"`
	TempDir      string  `yaml:"tempDir"`
	ShareURL     string  `yaml:"shareURL"`

	// Входные данные
	ScriptPath string `yaml:"script"`
	ScriptDir  string `yaml:"scriptDir"`
	ImagesPath string `yaml:"images"`
	AudioPath  string `yaml:"audio"`
	AudioDir   string `yaml:"audioDir"`
	DPI        int    `yaml:"dpi"`
	Monitor    bool   `yaml:"monitor"`

	// Генерация
	OpenRouterAPIKey  string  `yaml:"-"`
	OpenRouterBaseURL string  `yaml:"openRouterBaseURL"`
	OpenAIAPIKey      string  `yaml:"-"`
	JokeModel         string  `yaml:"jokeModel"`
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int     `yaml:"maxTokens"`
	StructuredOutput  bool    `yaml:"structuredOutput"`
	ImageModel        string  `yaml:"imageModel"`
	SpeechModel       string  `yaml:"speechModel"`
	Voice             string  `yaml:"voice"`
	SpeechSpeed       float64 `yaml:"speechSpeed"`

	Addr         string `yaml:"addr"`
	ShowStats    bool   `yaml:"showStats"`
	BuildVersion string `yaml:"-"`
}

// Default returns the settings of the original preview: 540x960 canvas, 30 FPS capture, WebM
func Default() *Config {
	return &Config{
		Width:             540,
		Height:            960,
		FPS:               30,
		RefreshRate:       60,
		Format:            "webm",
		Bitrate:           4000,
		ExportBuffer:      0.5,
		OutputDir:         "output",
		ScriptDir:         "input/scripts",
		AudioDir:          "input/audio",
		DPI:               150,
		OpenRouterBaseURL: "https://openrouter.ai/api/v1",
		JokeModel:         "anthropic/claude-haiku-4-5",
		Temperature:       0.9,
		MaxTokens:         1000,
		ImageModel:        "gpt-image-1",
		SpeechModel:       "tts-1",
		Voice:             "onyx",
		SpeechSpeed:       0.95,
		Addr:              ":8080",
	}
}

// LoadFile overlays a YAML config file; a missing file is not an error
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// LoadEnv reads .env (if present) and the environment: API keys and endpoints
func (c *Config) LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("[*] .env не найден, используются переменные окружения")
	}
	c.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("OPENROUTER_BASE_URL"); v != "" {
		c.OpenRouterBaseURL = v
	}
	if v := os.Getenv("JOKE_MODEL"); v != "" {
		c.JokeModel = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if _, err := strconv.Atoi(v); err == nil {
			c.Addr = ":" + v
		}
	}
}

// ApplyPreset sets the frame size for a named aspect ratio
func (c *Config) ApplyPreset(preset string) bool {
	switch preset {
	case "9:16":
		c.Width, c.Height = 540, 960
	case "9:16-hd":
		c.Width, c.Height = 720, 1280
	case "16:9":
		c.Width, c.Height = 1280, 720
	case "4:5":
		c.Width, c.Height = 1080, 1350
	default:
		return false
	}
	c.Preset = preset
	return true
}

// Validate checks the settings the export pipeline depends on
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 || c.Width%2 != 0 || c.Height%2 != 0 {
		return fmt.Errorf("размер кадра должен быть положительным и четным: %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 || c.RefreshRate <= 0 {
		return fmt.Errorf("некорректная частота: fps=%d refresh=%d", c.FPS, c.RefreshRate)
	}
	if c.ExportBuffer < 0.5 {
		return fmt.Errorf("буфер экспорта %.2fs меньше минимального 0.5s", c.ExportBuffer)
	}
	if c.Format != "webm" && c.Format != "mp4" {
		return fmt.Errorf("неизвестный формат: %s", c.Format)
	}
	return nil
}
