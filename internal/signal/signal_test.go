package signal

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSignalCancelOnSignal(t *testing.T) {
	ctx, cancel := WithSignalCancel(context.Background())
	defer cancel()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by SIGINT")
	}
	assert.True(t, Interrupted(ctx))
}

func TestWithSignalCancelExplicit(t *testing.T) {
	ctx, cancel := WithSignalCancel(context.Background())
	cancel()

	<-ctx.Done()
	assert.False(t, Interrupted(ctx))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
