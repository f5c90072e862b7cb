package nats

import (
	"testing"
	"time"

	"github.com/ruuig/tienda-online-sub002/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	event := events.NewIndexRebuilt("vendor-1", 3, 42, 1)
	event.OccurredAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	data, err := encode(event)
	require.NoError(t, err)

	decoded, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, events.TypeIndexRebuilt, decoded.EventType())
	assert.True(t, event.OccurredAt.Equal(decoded.Timestamp()))
	assert.Equal(t, "vendor-1", decoded.Payload()["vendorId"])
	assert.Equal(t, float64(42), decoded.Payload()["indexedChunks"])
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "assistant.ORDER_REQUESTED", Subject(events.TypeOrderRequested))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decode([]byte("not json"))
	assert.Error(t, err)
}
