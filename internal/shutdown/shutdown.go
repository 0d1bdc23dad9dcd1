// Package shutdown provides the one-shot stop request shared by the signal
// listener and the control loop.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"codeberg.org/mutker/profilectl/internal/logger"
)

// Coordinator is a flag that can be raised once and is never cleared.
type Coordinator struct {
	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	reason string
}

func New() *Coordinator {
	return &Coordinator{done: make(chan struct{})}
}

// Trigger raises the flag. Later calls are no-ops and keep the first reason.
func (c *Coordinator) Trigger(reason string) {
	c.once.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Coordinator) Requested() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done is closed once Trigger has been called.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.reason
}

// Listen triggers c on the first of sigs. The listener exits after the first
// signal or when ctx ends.
func Listen(ctx context.Context, c *Coordinator, sigs ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	go func() {
		defer signal.Stop(ch)

		select {
		case s := <-ch:
			logger.Info().Str("signal", s.String()).Msg("Received termination signal")
			c.Trigger(s.String())
		case <-ctx.Done():
		}
	}()
}
