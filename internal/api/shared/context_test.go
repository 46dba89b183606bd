package shared

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSetAndGetTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	withTrace := SetTraceID(ctx)
	traceID := GetTraceID(withTrace)
	assert.Len(t, traceID, 2*TraceIDLength)
	_, err := hex.DecodeString(traceID)
	assert.NoError(t, err)

	assert.NotEqual(t, traceID, GetTraceID(SetTraceID(ctx)), "each call yields a new id")
	assert.Empty(t, GetTraceID(ctx), "parent context is unchanged")
}

func TestGetTraceIDWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), TraceIDKey, 123)
	assert.Empty(t, GetTraceID(ctx))
}

func TestFallbackTraceID(t *testing.T) {
	id := fallbackTraceID()
	assert.Len(t, id, 2*TraceIDLength)
}

func TestUserID(t *testing.T) {
	_, ok := UserID(context.Background())
	assert.False(t, ok)

	_, ok = UserID(WithUserID(context.Background(), uuid.Nil))
	assert.False(t, ok, "nil uuid is not a user")

	id := uuid.New()
	got, ok := UserID(WithUserID(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
