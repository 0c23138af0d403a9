package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/sanLimbu/esindex/internal"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		evt     internal.DocumentEvent
		wantKey string
	}{
		{
			name:    "indexed",
			evt:     internal.DocumentEvent{Type: internal.DocumentEventIndexed, Document: internal.Document{"id": "7", "title": "x"}},
			wantKey: "7",
		},
		{
			name:    "deleted",
			evt:     internal.DocumentEvent{Type: internal.DocumentEventDeleted, ID: "9"},
			wantKey: "9",
		},
		{
			name: "bulk",
			evt:  internal.DocumentEvent{Type: internal.DocumentEventBulk, Documents: []internal.Document{{"id": "1"}, {"id": "2"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := newMessage("documents", tt.evt)
			require.NoError(t, err)

			require.NotNil(t, msg.TopicPartition.Topic)
			assert.Equal(t, "documents", *msg.TopicPartition.Topic)
			assert.Equal(t, kafka.PartitionAny, msg.TopicPartition.Partition)
			assert.Equal(t, tt.wantKey, string(msg.Key))

			var got internal.DocumentEvent
			require.NoError(t, json.Unmarshal(msg.Value, &got))
			assert.Equal(t, tt.evt.Type, got.Type)
			assert.Equal(t, tt.evt.ID, got.ID)
			assert.Len(t, got.Documents, len(tt.evt.Documents))
		})
	}
}

func TestDocument_Indexed(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"test.mock.num.brokers": 1,
		"message.timeout.ms":    1000,
	})
	require.NoError(t, err)
	t.Cleanup(producer.Close)

	pub := NewDocument(producer, "documents")

	require.NoError(t, pub.Indexed(context.Background(), internal.Document{"id": "1"}))
	producer.Flush(1000)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "Document.Indexed", spans[0].Name())
}
