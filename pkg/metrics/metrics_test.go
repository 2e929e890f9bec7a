package metrics

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoApplication(t *testing.T) {
	ctx := WithApplication(context.Background(), nil)

	_, ok := ApplicationFromContext(ctx)
	assert.False(t, ok)

	// Every recorder is safe to call without New Relic configured.
	RecordCount(ctx, "count", 1)
	RecordDuration(ctx, "duration", 0)
	RecordEvent(ctx, "event", map[string]interface{}{"k": "v"})

	traced, end := StartTransaction(ctx, "txn")
	assert.Equal(t, ctx, traced)
	end()

	tracer := TraceMethodCall(ctx, "pkg", "Method")
	require.Nil(t, tracer)
	tracer.AddAttribute("k", "v")
	tracer.OnError(errors.New("err"))
	tracer.End()
}

func TestNewApplication_Disabled(t *testing.T) {
	app, err := NewApplication("solagent", "")
	assert.NoError(t, err)
	assert.Nil(t, app)
}

func TestLogFormatter_NoApplication(t *testing.T) {
	formatter := NewLogFormatter(nil, &logrus.TextFormatter{DisableTimestamp: true})

	entry := logrus.NewEntry(logrus.StandardLogger()).WithFields(logrus.Fields{
		"signature": "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnb",
		"error":     errors.New("blockhash not found"),
	})
	entry.Message = "transaction rejected"
	entry.Level = logrus.WarnLevel

	formatted, err := formatter.Format(entry)
	require.NoError(t, err)
	assert.Contains(t, string(formatted), "transaction rejected")
	assert.Contains(t, string(formatted), "signature=5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnb")
}

func TestMessageWithFields(t *testing.T) {
	entry := logrus.NewEntry(logrus.StandardLogger())
	entry.Message = "closed"
	assert.Equal(t, "closed", messageWithFields(entry))

	entry = entry.WithFields(logrus.Fields{
		"accounts": 3,
		"error":    errors.New("boom"),
	})
	entry.Message = "closed"
	assert.Equal(t, `message="closed", error="boom", data={"accounts":3}`, messageWithFields(entry))
}
