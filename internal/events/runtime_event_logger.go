package events

import (
	"context"
	"encoding/json"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"memoria/internal/models"
)

func logRuntimeEvent(ctx context.Context, name string, payload any) {
	evt, ok := payload.(NotificationEvent)
	if !ok || evt.Notification == nil {
		runtime.LogDebug(ctx, "emitted "+name)
		return
	}

	data, err := json.Marshal(evt.Notification)
	if err != nil {
		runtime.LogError(ctx, "events: failed to marshal notification: "+err.Error())
		return
	}
	line := name + " " + string(data)

	switch evt.Notification.Severity {
	case models.SeverityError:
		runtime.LogError(ctx, line)
	case models.SeverityWarning:
		runtime.LogWarning(ctx, line)
	default:
		runtime.LogInfo(ctx, line)
	}
}
