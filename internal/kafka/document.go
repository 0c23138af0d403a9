package kafka

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/sanLimbu/esindex/internal"
)

const otelName = "github.com/sanLimbu/esindex/internal/kafka"

//Document represents the repository used for publishing Document events.
type Document struct {
	producer  *kafka.Producer
	topicName string
}

//NewDocument instantiates the Document repository.
func NewDocument(producer *kafka.Producer, topicName string) *Document {
	return &Document{
		topicName: topicName,
		producer:  producer,
	}
}

//Indexed publishes a message requesting doc to be created or replaced.
func (d *Document) Indexed(ctx context.Context, doc internal.Document) error {
	return d.publish(ctx, "Document.Indexed", internal.DocumentEvent{
		Type:     internal.DocumentEventIndexed,
		Document: doc,
	})
}

//Bulk publishes a message requesting docs to be created or replaced in one batch.
func (d *Document) Bulk(ctx context.Context, docs []internal.Document) error {
	return d.publish(ctx, "Document.Bulk", internal.DocumentEvent{
		Type:      internal.DocumentEventBulk,
		Documents: docs,
	})
}

//Deleted publishes a message requesting a document to be deleted.
func (d *Document) Deleted(ctx context.Context, id string) error {
	return d.publish(ctx, "Document.Deleted", internal.DocumentEvent{
		Type: internal.DocumentEventDeleted,
		ID:   id,
	})
}

func (d *Document) publish(ctx context.Context, spanName string, evt internal.DocumentEvent) error {
	_, span := otel.Tracer(otelName).Start(ctx, spanName)
	defer span.End()

	span.SetAttributes(
		semconv.MessagingSystemKey.String("kafka"),
		semconv.MessagingDestinationName(d.topicName),
	)

	msg, err := newMessage(d.topicName, evt)
	if err != nil {
		return err
	}

	if err := d.producer.Produce(msg, nil); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "producer.Produce")
	}

	return nil
}

//newMessage keys single document events by id so they land on the same partition, in order.
func newMessage(topicName string, evt internal.DocumentEvent) (*kafka.Message, error) {
	var b bytes.Buffer

	if err := json.NewEncoder(&b).Encode(evt); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.Encode")
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topicName,
			Partition: kafka.PartitionAny,
		},
		Value: b.Bytes(),
	}

	switch {
	case evt.ID != "":
		msg.Key = []byte(evt.ID)
	case evt.Document != nil:
		if id, ok := evt.Document.ID(); ok {
			msg.Key = []byte(id)
		}
	}

	return msg, nil
}
