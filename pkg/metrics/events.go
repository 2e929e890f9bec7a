package metrics

import (
	"context"
)

// RecordEvent records a custom event against the application in ctx, if any.
func RecordEvent(ctx context.Context, eventName string, attributes map[string]interface{}) {
	if app, ok := ApplicationFromContext(ctx); ok {
		app.RecordCustomEvent(eventName, attributes)
	}
}
