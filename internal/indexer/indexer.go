package indexer

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sanLimbu/esindex/internal"
)

const otelName = "github.com/sanLimbu/esindex/internal/indexer"

//DefaultRetryDelay is how long Handle waits before asking for a failed message to be
//delivered again.
const DefaultRetryDelay = 2 * time.Second

//Outcome tells the consumer what to do with a delivered message.
type Outcome int

const (
	//Done means the event was applied.
	Done Outcome = iota
	//Drop means the message can never be applied.
	Drop
	//Retry means the message should be delivered again.
	Retry
)

//DocumentStore defines the index the events are applied to.
type DocumentStore interface {
	CreateOrUpdateDocument(ctx context.Context, doc internal.Document) error
	CreateDocuments(ctx context.Context, docs []internal.Document) error
	DeleteDocument(ctx context.Context, id string) error
}

//Indexer applies document events coming from a message broker.
type Indexer struct {
	store      DocumentStore
	logger     *zap.Logger
	retryDelay time.Duration
}

//New ...
func New(store DocumentStore, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Indexer{
		store:      store,
		logger:     logger,
		retryDelay: DefaultRetryDelay,
	}
}

//SetRetryDelay changes the pause Handle takes after a retryable failure.
func (i *Indexer) SetRetryDelay(d time.Duration) {
	i.retryDelay = d
}

//Handle decodes and applies a message body. Retryable failures pause for the retry delay, or
//until ctx is done, so a redelivery loop does not spin while the index is unreachable.
func (i *Indexer) Handle(ctx context.Context, body []byte) Outcome {
	evt, err := Decode(body)
	if err != nil {
		i.logger.Info("Ignoring message, invalid", zap.Error(err))
		return Drop
	}

	err = i.Apply(ctx, evt)

	switch {
	case err == nil:
		return Done
	case Retryable(err):
		t := time.NewTimer(i.retryDelay)
		defer t.Stop()

		select {
		case <-t.C:
		case <-ctx.Done():
		}

		return Retry
	default:
		return Drop
	}
}

//Decode parses a message body. Malformed messages are InvalidArgument errors and should not be
//retried.
func Decode(b []byte) (internal.DocumentEvent, error) {
	var evt internal.DocumentEvent

	if err := json.Unmarshal(b, &evt); err != nil {
		return internal.DocumentEvent{}, internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json.Unmarshal")
	}

	return evt, nil
}

//Apply writes the event to the store.
func (i *Indexer) Apply(ctx context.Context, evt internal.DocumentEvent) error {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Indexer.Apply")
	defer span.End()

	span.SetAttributes(attribute.String("event.type", evt.Type))

	var err error

	switch evt.Type {
	case internal.DocumentEventIndexed:
		err = i.store.CreateOrUpdateDocument(ctx, evt.Document)
	case internal.DocumentEventBulk:
		err = i.store.CreateDocuments(ctx, evt.Documents)
	case internal.DocumentEventDeleted:
		err = i.store.DeleteDocument(ctx, evt.ID)
	default:
		err = internal.NewErrorf(internal.ErrorCodeInvalidArgument, "unknown event type %q", evt.Type)
	}

	if err != nil {
		span.RecordError(err)
		i.logger.Info("Couldn't apply event", zap.String("type", evt.Type), zap.Error(err))

		return internal.WrapErrorf(err, internal.CodeOf(err), "apply %s", evt.Type)
	}

	i.logger.Info("Consumed", zap.String("type", evt.Type))

	return nil
}

//Retryable reports whether a failed event may succeed if delivered again.
func Retryable(err error) bool {
	return err != nil && internal.CodeOf(err) == internal.ErrorCodeUnknown
}
