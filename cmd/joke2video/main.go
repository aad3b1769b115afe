package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ivlev/joke2video/internal/api"
	"github.com/ivlev/joke2video/internal/audio"
	"github.com/ivlev/joke2video/internal/capture"
	"github.com/ivlev/joke2video/internal/config"
	"github.com/ivlev/joke2video/internal/generate"
	"github.com/ivlev/joke2video/internal/renderer"
	"github.com/ivlev/joke2video/internal/script"
	"github.com/ivlev/joke2video/internal/source"
	"github.com/ivlev/joke2video/internal/studio"
	"github.com/ivlev/joke2video/internal/system"
	"github.com/ivlev/joke2video/internal/tui"
	"github.com/ivlev/joke2video/internal/video"
)

// Version задается при сборке: -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	def := config.Default()

	configPtr := flag.String("config", "joke2video.yaml", "YAML-файл настроек (необязателен)")
	topicPtr := flag.String("topic", "", "Тема шутки: сгенерировать сценарий, картинки и озвучку")
	scriptPtr := flag.String("script", "", "Путь к сценарию YAML/JSON (по умолчанию: самый свежий в input/scripts/)")
	imagesPtr := flag.String("images", "", "PDF или папка с изображениями для сцен (вместо генерации)")
	audioPtr := flag.String("audio", "", "Путь к озвучке (по умолчанию: самый свежий файл в input/audio/)")
	servePtr := flag.Bool("serve", false, "Запустить HTTP API")
	tuiPtr := flag.Bool("tui", false, "Интерактивный редактор сцен")
	widthPtr := flag.Int("width", def.Width, "Ширина")
	heightPtr := flag.Int("height", def.Height, "Высота")
	presetPtr := flag.String("preset", "", "Пресет формата: 9:16 (по умолчанию), 9:16-hd, 16:9, 4:5")
	fpsPtr := flag.Int("fps", def.FPS, "FPS захвата")
	refreshPtr := flag.Int("refresh", def.RefreshRate, "Частота тиков воспроизведения (Гц)")
	formatPtr := flag.String("format", def.Format, "Формат видео: webm, mp4")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	bitratePtr := flag.Int("bitrate", def.Bitrate, "Битрейт VP9 (кбит/с)")
	bufferPtr := flag.Float64("buffer", def.ExportBuffer, "Запас записи после последней сцены (сек, минимум 0.5)")
	outputPtr := flag.String("output", def.OutputDir, "Папка для видео")
	shareURLPtr := flag.String("share-url", "", "Ссылка для QR-кода на кадре")
	dpiPtr := flag.Int("dpi", def.DPI, "DPI для страниц PDF")
	monitorPtr := flag.Bool("monitor", false, "Проигрывать озвучку через ffplay во время просмотра")
	structuredPtr := flag.Bool("structured", false, "Строгий JSON-schema ответ от LLM")
	statsPtr := flag.Bool("stats", false, "Отчет о производительности экспорта в benchmark.log")

	flag.Parse()

	// Порядок: значения по умолчанию -> YAML -> .env/окружение -> флаги
	cfg := config.Default()
	if err := cfg.LoadFile(*configPtr); err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	cfg.LoadEnv()
	cfg.BuildVersion = Version

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "script":
			cfg.ScriptPath = *scriptPtr
		case "images":
			cfg.ImagesPath = *imagesPtr
		case "audio":
			cfg.AudioPath = *audioPtr
		case "width":
			cfg.Width = *widthPtr
		case "height":
			cfg.Height = *heightPtr
		case "fps":
			cfg.FPS = *fpsPtr
		case "refresh":
			cfg.RefreshRate = *refreshPtr
		case "format":
			cfg.Format = *formatPtr
		case "quality":
			cfg.Quality = *qualityPtr
		case "bitrate":
			cfg.Bitrate = *bitratePtr
		case "buffer":
			cfg.ExportBuffer = *bufferPtr
		case "output":
			cfg.OutputDir = *outputPtr
		case "share-url":
			cfg.ShareURL = *shareURLPtr
		case "dpi":
			cfg.DPI = *dpiPtr
		case "monitor":
			cfg.Monitor = *monitorPtr
		case "structured":
			cfg.StructuredOutput = *structuredPtr
		case "stats":
			cfg.ShowStats = *statsPtr
		}
	})
	if *presetPtr != "" && !cfg.ApplyPreset(*presetPtr) {
		log.Fatalf("[-] Неизвестный пресет: %s", *presetPtr)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] %v", err)
	}

	if err := system.EnsureDirs(cfg.OutputDir, cfg.ScriptDir, cfg.AudioDir, cfg.TempDir); err != nil {
		log.Fatalf("[-] Не удалось создать папки: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := renderer.New(renderer.WithShareQR(cfg.ShareURL))
	if err != nil {
		log.Fatalf("[-] Ошибка инициализации рендерера: %v", err)
	}
	opts := studioOptions(cfg)
	pipeline := newPipeline(cfg)

	switch {
	case *servePtr:
		serve(ctx, cfg, r, opts, pipeline)
	case *topicPtr != "":
		if pipeline == nil {
			log.Fatalf("[-] Генерация недоступна: нужны OPENROUTER_API_KEY и OPENAI_API_KEY (или -images)")
		}
		js, track := generateJoke(ctx, cfg, pipeline, *topicPtr)
		if *tuiPtr {
			runTUI(ctx, opts, r, pipeline, js, track)
			return
		}
		export(ctx, opts, r, js, track)
	default:
		js, track := loadJoke(ctx, cfg)
		if *tuiPtr {
			runTUI(ctx, opts, r, pipeline, js, track)
			return
		}
		export(ctx, opts, r, js, track)
	}
}

func studioOptions(cfg *config.Config) studio.Options {
	format := video.FormatByName(cfg.Format)
	quality := cfg.Quality
	if format.Name == "mp4" {
		encoder := system.GetBestH264Encoder()
		if encoder != "libx264" {
			fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", encoder)
		}
		format.VideoCodec = encoder
		if quality == 0 {
			quality = system.DefaultQuality(encoder)
		}
	}

	return studio.Options{
		Width:       cfg.Width,
		Height:      cfg.Height,
		RefreshRate: cfg.RefreshRate,
		Monitor:     cfg.Monitor,
		TempDir:     cfg.TempDir,
		Export: capture.Options{
			FPS:          cfg.FPS,
			Format:       format,
			Quality:      quality,
			Bitrate:      cfg.Bitrate,
			Buffer:       time.Duration(cfg.ExportBuffer * float64(time.Second)),
			OutputDir:    cfg.OutputDir,
			TempDir:      cfg.TempDir,
			ShowStats:    cfg.ShowStats,
			BuildVersion: cfg.BuildVersion,
		},
	}
}

// newPipeline собирает генераторы; nil, если ключей не хватает
func newPipeline(cfg *config.Config) *generate.Pipeline {
	writer, err := generate.NewChatJokeWriter(generate.ChatConfig{
		APIKey:      cfg.OpenRouterAPIKey,
		BaseURL:     cfg.OpenRouterBaseURL,
		Model:       cfg.JokeModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Structured:  cfg.StructuredOutput,
	})
	if err != nil {
		log.Printf("[!] Генерация шуток отключена: %v", err)
		return nil
	}

	var images generate.ImageGenerator
	if cfg.ImagesPath != "" {
		src, err := source.Open(cfg.ImagesPath, cfg.DPI)
		if err != nil {
			log.Printf("[!] Источник изображений %s: %v", cfg.ImagesPath, err)
			return nil
		}
		fmt.Printf("[*] Изображения из %s (%d шт.)\n", cfg.ImagesPath, src.Count())
		images = &source.Generator{Src: src}
	} else {
		g, err := generate.NewOpenAIImageGenerator(generate.ImageConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.ImageModel})
		if err != nil {
			log.Printf("[!] Генерация изображений отключена: %v", err)
			return nil
		}
		images = g
	}

	narrator, err := generate.NewOpenAINarrator(generate.SpeechConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.SpeechModel,
		Voice:  cfg.Voice,
		Speed:  cfg.SpeechSpeed,
	})
	if err != nil {
		log.Printf("[!] Озвучка отключена: %v", err)
		return nil
	}

	p := generate.NewPipeline(writer, images, narrator)
	p.OnStatus(func(s generate.Status) {
		if msg := s.Message(); msg != "" {
			fmt.Printf("[>] %s\n", msg)
		}
	})
	return p
}

// generateJoke прогоняет пайплайн и сохраняет сценарий и озвучку в input/
func generateJoke(ctx context.Context, cfg *config.Config, p *generate.Pipeline, topic string) (*script.JokeScript, *audio.Track) {
	res, err := p.Run(ctx, topic)
	if err != nil {
		var perr *script.ParseError
		if errors.As(err, &perr) {
			log.Printf("[!] Ответ модели:\n%s", perr.Raw)
		}
		log.Fatalf("[-] %v", err)
	}

	scriptPath := script.GenerateScriptPath(cfg.ScriptDir)
	if err := script.WriteScript(res.Script, scriptPath); err != nil {
		log.Printf("[!] Не удалось сохранить сценарий: %v", err)
	} else {
		fmt.Printf("[*] Сценарий сохранен: %s\n", scriptPath)
	}

	audioPath := strings.TrimSuffix(filepath.Join(cfg.AudioDir, filepath.Base(scriptPath)), filepath.Ext(scriptPath)) + ".mp3"
	if err := os.WriteFile(audioPath, res.Audio, 0644); err != nil {
		log.Printf("[!] Не удалось сохранить озвучку: %v", err)
	}
	return res.Script, audio.NewTrack(res.Audio, "mp3")
}

// loadJoke читает сценарий, подставляет картинки из -images и находит озвучку
func loadJoke(ctx context.Context, cfg *config.Config) (*script.JokeScript, *audio.Track) {
	scriptPath := cfg.ScriptPath
	if scriptPath == "" {
		latest, err := script.FindLatestScript(cfg.ScriptDir)
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите сценарий в %s/ или используйте -topic", err, cfg.ScriptDir)
		}
		scriptPath = latest
		fmt.Printf("[*] Выбран сценарий: %s\n", scriptPath)
	}

	js, err := script.ReadScript(scriptPath)
	if err != nil {
		log.Fatalf("[-] Ошибка сценария: %v", err)
	}

	if cfg.ImagesPath != "" {
		if err := attachImages(ctx, cfg, js); err != nil {
			log.Printf("[!] Изображения: %v", err)
		}
	}

	audioPath := cfg.AudioPath
	if audioPath == "" {
		if latest, err := system.FindLatestAudio(cfg.AudioDir); err == nil {
			audioPath = latest
			fmt.Printf("[*] Выбрано аудио: %s\n", audioPath)
		}
	}
	if audioPath == "" {
		fmt.Println("[*] Озвучки нет, видео будет без звука")
		return js, nil
	}
	track, err := audio.LoadTrack(audioPath)
	if err != nil {
		log.Printf("[!] Озвучка %s: %v", audioPath, err)
		return js, nil
	}
	return js, track
}

func attachImages(ctx context.Context, cfg *config.Config, js *script.JokeScript) error {
	src, err := source.Open(cfg.ImagesPath, cfg.DPI)
	if err != nil {
		return err
	}
	defer src.Close()

	gen := &source.Generator{Src: src}
	images, err := gen.GenerateImages(ctx, js.Prompts())
	if err != nil {
		return err
	}
	for i := range js.Scenes {
		if len(js.Scenes[i].Image) == 0 && len(images[i]) > 0 {
			js.Scenes[i].Image = images[i]
		}
	}
	return nil
}

func export(ctx context.Context, opts studio.Options, r *renderer.Renderer, js *script.JokeScript, track *audio.Track) {
	fmt.Printf("[*] Экспорт %q: %d сцен, %.1fs\n", js.Title, len(js.Scenes), script.TotalDuration(js.Scenes))
	res, err := studio.ExportScript(ctx, r, opts, js, track)
	if err != nil {
		log.Fatalf("[-] Ошибка экспорта: %v", err)
	}
	fmt.Printf("[+++] Успех! Результат: %s\n", res.Path)
}

func runTUI(ctx context.Context, opts studio.Options, r *renderer.Renderer, p *generate.Pipeline, js *script.JokeScript, track *audio.Track) {
	s := studio.New(r, opts)
	defer s.Close()
	if err := s.Load(ctx, js); err != nil {
		log.Fatalf("[-] %v", err)
	}
	s.SetNarration(track)

	// Логи ломают экран bubbletea
	if f, err := tea.LogToFile(filepath.Join(opts.Export.OutputDir, "joke2video.log"), "joke2video"); err == nil {
		defer f.Close()
	}

	program := tea.NewProgram(tui.NewModel(ctx, s, p), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Fatalf("[-] TUI: %v", err)
	}
}

func serve(ctx context.Context, cfg *config.Config, r *renderer.Renderer, opts studio.Options, p *generate.Pipeline) {
	srv := &api.Server{
		Export: func(ctx context.Context, js *script.JokeScript, track *audio.Track) (*capture.Result, error) {
			o := opts
			o.Export.OutputDir = "" // файл уходит клиенту
			return studio.ExportScript(ctx, r, o, js, track)
		},
	}
	if p != nil {
		srv.Writer, srv.Images, srv.Narrator = p.Writer, p.Images, p.Narrator
	}

	httpSrv := &http.Server{Addr: cfg.Addr, Handler: api.NewRouter(srv)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("[*] HTTP API: http://localhost%s\n", cfg.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("[-] HTTP: %v", err)
	}
}
