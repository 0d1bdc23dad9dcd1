package shutdown_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/profilectl/internal/shutdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestTriggerIsIdempotent(t *testing.T) {
	c := shutdown.New()
	assert.False(t, c.Requested())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Trigger("test")
		}()
	}
	wg.Wait()

	c.Trigger("later")
	assert.True(t, c.Requested())
	assert.Equal(t, "test", c.Reason())

	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestListenSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := shutdown.New()
	shutdown.Listen(ctx, c, unix.SIGUSR1)

	require.NoError(t, unix.Kill(os.Getpid(), unix.SIGUSR1))

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("signal not observed")
	}
	assert.Equal(t, unix.SIGUSR1.String(), c.Reason())
}

func TestListenStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := shutdown.New()
	shutdown.Listen(ctx, c, unix.SIGUSR2)
	cancel()

	time.Sleep(10 * time.Millisecond)
	assert.False(t, c.Requested())
}
