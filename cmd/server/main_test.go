package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestServeUntilCancelled_StopsOnContextCancel(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0"}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- serveUntilCancelled(ctx, srv, time.Second)
	}()

	// Give the listener a moment to come up before cancelling.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("shutdown returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after context cancellation")
	}
}

func TestServeUntilCancelled_PropagatesListenError(t *testing.T) {
	// Occupy a port so the server cannot bind it.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	defer listener.Close()

	srv := &http.Server{Addr: listener.Addr().String()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- serveUntilCancelled(context.Background(), srv, time.Second)
	}()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected bind failure")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listen error never surfaced")
	}
}
