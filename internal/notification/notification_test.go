package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerNotifierWritesEntry(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLoggerNotifier(zap.New(core))

	require.NoError(t, n.Send(context.Background(), Message{Kind: KindRequestCompleted, Destination: "w-1", Body: "paid"}))

	entries := logs.FilterMessage("notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, KindRequestCompleted, entries[0].ContextMap()["kind"])
	assert.Equal(t, "w-1", entries[0].ContextMap()["destination"])
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *LoggerNotifier
	assert.NoError(t, n.Send(context.Background(), Message{}))
}
