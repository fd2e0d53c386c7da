package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/sentinel-rag/internal/pkg/pubsub"
)

func TestBrokerSinkPublishes(t *testing.T) {
	broker := pubsub.NewBroker[Event]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := broker.Subscribe(ctx)

	sink := MultiSink{NewBrokerSink(broker), NopSink{}, nil}
	sink.Emit(context.Background(), Event{Type: EventDocumentDeleted, Message: "gone"})

	got := <-ch
	assert.Equal(t, EventDocumentDeleted, got.Type)
	assert.Equal(t, "gone", got.Payload.Message)
}
