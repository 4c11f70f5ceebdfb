package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetUser(ctx))
	assert.Equal(t, "", GetUserID(ctx))
	assert.False(t, HasRole(ctx, "sequence-admin"))

	ctx = WithUser(ctx, &UserContext{UserID: "ops-1", Roles: []string{"sequence-admin"}})
	assert.Equal(t, "ops-1", GetUserID(ctx))
	assert.True(t, HasRole(ctx, "sequence-admin"))
	assert.False(t, HasRole(ctx, "billing"))
}

func TestTraceContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", GetRequestID(ctx))
	assert.Equal(t, "", GetTraceID(ctx))

	tc := NewTraceContext("req-1", "")
	assert.Equal(t, "req-1", tc.RequestID)
	assert.NotEmpty(t, tc.TraceID)
	assert.Len(t, tc.SpanID, 16)

	ctx = WithTrace(ctx, tc)
	assert.Equal(t, tc.TraceID, GetTraceID(ctx))
	assert.Equal(t, "req-1", GetRequestID(ctx))
}

func TestGetTraceID_PrefersSpan(t *testing.T) {
	traceID := trace.TraceID{0x0a, 0x0b, 0x0c, 0x0d, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x10, 0x11, 0x12}
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: trace.SpanID{1}})

	ctx := WithTrace(context.Background(), NewTraceContext("", "header-trace"))
	ctx = trace.ContextWithSpanContext(ctx, sc)

	assert.Equal(t, traceID.String(), GetTraceID(ctx))
}
