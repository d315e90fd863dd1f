package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/PratikDhanave/line-webhook-service/internal/models"
)

func TestNewTracer_EmptyEndpointIsNoop(t *testing.T) {
	tracer, cleanup, err := NewTracer(Config{ServiceName: "test"})
	require.NoError(t, err)
	require.NotNil(t, tracer)

	ctx, span := tracer.StartSpan(context.Background(), "noop")
	tracer.RecordError(ctx, errors.New("ignored"))
	span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, cleanup(context.Background()))
}

func TestStartSpan_NilTracer(t *testing.T) {
	var tracer *Tracer
	ctx, span := tracer.StartSpan(context.Background(), "nil")
	defer span.End()
	assert.NotNil(t, ctx)
}

func TestEventAttributes(t *testing.T) {
	attrs := Noop().EventAttributes(models.Event{
		Type:           models.EventMemberJoined,
		WebhookEventID: "E1",
		Source:         models.Source{Type: models.SourceGroup},
		Redelivery:     true,
	})

	got := map[attribute.Key]attribute.Value{}
	for _, kv := range attrs {
		got[kv.Key] = kv.Value
	}
	assert.Equal(t, "memberJoined", got["linebot.event.type"].AsString())
	assert.Equal(t, "E1", got["linebot.event.id"].AsString())
	assert.Equal(t, "group", got["linebot.source.type"].AsString())
	assert.True(t, got["linebot.event.redelivery"].AsBool())

	msgAttrs := Noop().MessagingAttributes("reply", 3)
	require.Len(t, msgAttrs, 2)
	assert.Equal(t, int64(3), msgAttrs[1].Value.AsInt64())
}
