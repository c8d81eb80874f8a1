package events

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Emit publishes an event to the frontend. It is a no-op until
// EnableRuntimeEmitter or SetCustomEmitter is called.
var Emit = func(ctx context.Context, name string, payload any) {}

func EnableRuntimeEmitter() {
	Emit = func(ctx context.Context, name string, payload any) {
		if ctx == nil {
			return
		}
		if theme, ok := payload.(ThemeEvent); ok {
			if theme.DarkMode {
				runtime.WindowSetDarkTheme(ctx)
			} else {
				runtime.WindowSetLightTheme(ctx)
			}
		}

		runtime.EventsEmit(ctx, name, payload)
		logRuntimeEvent(ctx, name, payload)
	}
}

func SetCustomEmitter(f func(ctx context.Context, name string, payload any)) {
	if f == nil {
		Emit = func(context.Context, string, any) {}
		return
	}
	Emit = f
}
