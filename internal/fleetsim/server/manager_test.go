package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type blockingServer struct {
	stopped chan struct{}
}

func (b *blockingServer) Start(ctx context.Context) error {
	<-ctx.Done()
	close(b.stopped)
	return nil
}

type failingServer struct{}

func (failingServer) Start(context.Context) error { return errors.New("bind: address already in use") }

func TestManagerStopsAllOnFailure(t *testing.T) {
	b := &blockingServer{stopped: make(chan struct{})}
	m := NewManager(b)
	m.Add(failingServer{})

	err := m.Start(context.Background())
	assert.ErrorContains(t, err, "address already in use")

	select {
	case <-b.stopped:
	case <-time.After(time.Second):
		t.Fatal("blocking server was not cancelled")
	}
}

func TestManagerReturnsOnCancel(t *testing.T) {
	b := &blockingServer{stopped: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, NewManager(b).Start(ctx))
}
