package kafka

import (
	"testing"

	"github.com/ariefcatur/krstock/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := events.NewEnvelope(events.EventInventorySnapshotBuilt, "krstock-api", "snap-1",
		events.InventorySnapshotPayload{SnapshotID: "snap-1", Stores: 3, LowStock: []events.LowStockAlert{
			{Store: "始祖鸟釜山店", ProductKey: "Beta SL Black M", Stock: 1},
		}})
	require.NoError(t, err)

	got, err := DecodeEnvelope(MustMarshal(env))
	require.NoError(t, err)
	assert.Equal(t, env.EventID, got.EventID)
	assert.Equal(t, 1, got.EventVersion)

	p, err := UnwrapPayload[events.InventorySnapshotPayload](got.Payload)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stores)
	require.Len(t, p.LowStock, 1)
	assert.Equal(t, 1, p.LowStock[0].Stock)
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	_, err := DecodeEnvelope([]byte("{"))
	assert.Error(t, err)

	_, err = UnwrapPayload[events.CalculationPayload]([]byte(`[1]`))
	assert.Error(t, err)
}

func TestPublishAfterClose(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, 1, nil)
	p.Close()
	p.Close()
	env, err := events.NewEnvelope(events.EventCalculationCompleted, "t", "", events.CalculationPayload{})
	require.NoError(t, err)
	assert.ErrorIs(t, p.Publish(t.Context(), events.TopicCalculation, nil, env), ErrProducerClosed)
}
