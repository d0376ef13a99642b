package webgpu

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAwaitDeviceReturnsResult(t *testing.T) {
	want := errors.New("boom")
	err := awaitDevice(context.Background(), "probe", time.Second, func() error { return want }, nil)
	if !errors.Is(err, want) {
		t.Fatalf("awaitDevice() = %v, want %v", err, want)
	}

	if err := awaitDevice(context.Background(), "probe", time.Second, func() error { return nil }, nil); err != nil {
		t.Fatalf("awaitDevice() = %v, want nil", err)
	}
}

func TestAwaitDeviceTimeout(t *testing.T) {
	release := make(chan struct{})
	abandoned := make(chan error, 1)

	err := awaitDevice(context.Background(), "map", 10*time.Millisecond,
		func() error {
			<-release
			return nil
		},
		func(err error) { abandoned <- err },
	)

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("timeout error should match ErrTimeout")
	}
	if te.Op != "map" {
		t.Errorf("Op = %q, want map", te.Op)
	}

	close(release)
	select {
	case err := <-abandoned:
		if err != nil {
			t.Errorf("abandon got %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("abandon callback never ran")
	}
}

func TestAwaitDeviceContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)

	err := awaitDevice(ctx, "submit", time.Minute, func() error {
		<-release
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("awaitDevice() = %v, want context.Canceled", err)
	}
}
