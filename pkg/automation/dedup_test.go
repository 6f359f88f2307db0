package automation_test

import (
	"context"
	"testing"

	"github.com/dealerdesk/automation/pkg/automation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduper(t *testing.T) {
	t.Parallel()

	deduper := automation.NewMemoryDeduper()
	ctx := context.Background()

	seen, err := deduper.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen, "first delivery passes")

	seen, err = deduper.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen, "redelivery is filtered")

	seen, err = deduper.Seen(ctx, "evt-2")
	require.NoError(t, err)
	assert.False(t, seen, "other events are unaffected")
}

func TestMemoryDeduper_Forget(t *testing.T) {
	t.Parallel()

	deduper := automation.NewMemoryDeduper()
	ctx := context.Background()

	_, err := deduper.Seen(ctx, "evt-1")
	require.NoError(t, err)

	require.NoError(t, deduper.Forget(ctx, "evt-1"))

	seen, err := deduper.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen, "forgotten event can be processed again")

	require.NoError(t, deduper.Forget(ctx, "evt-unknown"))
}
