package reqid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, id, got)

	_, ok = FromContext(context.Background())
	require.False(t, ok, "unexpected id in empty context")
}

func TestNestedContextGetsFreshID(t *testing.T) {
	outer, first := NewContext(context.Background())
	inner, second := NewContext(outer)
	got, _ := FromContext(inner)
	require.Equal(t, second, got)
	require.NotEqual(t, first, second)
}
