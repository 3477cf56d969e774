package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func TestSafeAttributesDropsCustomerData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/v1/teams/:team_id/dashboard"),
		attribute.String("address", "Rua A, 10"),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.ErrorIs(t, SafeError(context.DeadlineExceeded), context.DeadlineExceeded)
	assert.Equal(t, "request failed", SafeError(errors.New("duplicate key (street)=(Rua A)")).Error())
}

func TestNewProviderWithoutExportStillRecordsSpans(t *testing.T) {
	tp, err := NewProvider(nil, Config{SamplingRatio: 1}, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
}
