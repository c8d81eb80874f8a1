package logger

import (
	"log/slog"
	"os"
)

// Wails adapts a slog.Logger to the logger interface expected by
// wails options.App so runtime and frontend logs share one sink.
type Wails struct {
	Log *slog.Logger
}

func (w Wails) Print(message string)   { w.Log.Info(message, "source", "wails") }
func (w Wails) Trace(message string)   { w.Log.Debug(message, "source", "wails") }
func (w Wails) Debug(message string)   { w.Log.Debug(message, "source", "wails") }
func (w Wails) Info(message string)    { w.Log.Info(message, "source", "wails") }
func (w Wails) Warning(message string) { w.Log.Warn(message, "source", "wails") }
func (w Wails) Error(message string)   { w.Log.Error(message, "source", "wails") }

func (w Wails) Fatal(message string) {
	w.Log.Error(message, "source", "wails", "fatal", true)
	os.Exit(1)
}
