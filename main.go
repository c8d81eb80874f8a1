package main

import (
	"embed"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"github.com/wailsapp/wails/v2"
	wailslogger "github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"

	"memoria/internal/config"
	"memoria/internal/events"
	"memoria/internal/logger"
	"memoria/internal/services"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	envFiles := pflag.StringSlice("env-file", nil, ".env files to load before reading MEMORIA_* variables (default: .env at the project root)")
	debug := pflag.Bool("debug", false, "enable debug logging")
	logFile := pflag.String("log-file", "", "also append logs to this file")
	logSource := pflag.Bool("log-source", false, "include source file:line in log output")
	pflag.Parse()

	cfg, err := config.Load(*configPath, *envFiles...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if *debug {
		level = slog.LevelDebug
	}
	writers := []io.Writer{os.Stdout}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error opening log file:", err)
			os.Exit(1)
		}
		defer f.Close()
		writers = append(writers, f)
	}
	log := logger.New(
		logger.WithLevel(level),
		logger.WithPretty(cfg.Log.Format == "pretty"),
		logger.WithJSON(cfg.Log.Format == "json"),
		logger.WithSource(*logSource),
		logger.WithWriters(writers...),
	)
	slog.SetDefault(log)

	svc, err := services.NewServices(cfg, log)
	if err != nil {
		log.Error("starting services failed", "error", err)
		os.Exit(1)
	}

	app := NewApp(svc, log)
	events.EnableRuntimeEmitter()

	wailsLevel := wailslogger.INFO
	if level <= slog.LevelDebug {
		wailsLevel = wailslogger.DEBUG
	}

	// Create application with options
	err = wails.Run(&options.App{
		Title:  "Memoria",
		Width:  1024,
		Height: 768,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Linux: &linux.Options{
			WindowIsTranslucent: false,
			WebviewGpuPolicy:    linux.WebviewGpuPolicyAlways,
			ProgramName:         "Memoria",
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		Logger:           logger.Wails{Log: log},
		LogLevel:         wailsLevel,
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
	})

	if err != nil {
		log.Error("wails exited", "error", err)
		os.Exit(1)
	}
}
