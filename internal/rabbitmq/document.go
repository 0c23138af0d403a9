package rabbitmq

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/sanLimbu/esindex/internal"
)

const (
	otelName = "github.com/sanLimbu/esindex/internal/rabbitmq"

	//ExchangeName is the topic exchange document events are published to.
	ExchangeName = "documents"
)

type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

//Document represents the repository used for publishing Document events.
type Document struct {
	ch publisher
}

//NewDocument instantiates the Document repository.
func NewDocument(channel *amqp.Channel) (*Document, error) {
	return &Document{
		ch: channel,
	}, nil
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

//publish uses the event type as routing key.
func (d *Document) publish(ctx context.Context, spanName string, evt internal.DocumentEvent) error {
	_, span := otel.Tracer(otelName).Start(ctx, spanName)
	defer span.End()

	span.SetAttributes(
		semconv.MessagingSystemKey.String("rabbitmq"),
		semconv.MessagingRabbitmqDestinationRoutingKey(evt.Type),
	)

	var b bytes.Buffer
	if err := json.NewEncoder(&b).Encode(evt); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.Encode")
	}

	err := d.ch.Publish(
		ExchangeName, // exchange
		evt.Type,     // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			AppId:        "esindex-rest-server",
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         b.Bytes(),
			Timestamp:    time.Now(),
		})
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "ch.Publish")
	}

	return nil
}
