package webgpu

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// awaitDevice runs a blocking device call on its own goroutine and waits for
// its result on a single-use channel, bounded by timeout and ctx.
//
// When the wait gives up, the call keeps running; abandon is invoked with its
// eventual result so it can release whatever the call still owns. abandon
// may be nil.
func awaitDevice(ctx context.Context, op string, timeout time.Duration, call func() error, abandon func(error)) error {
	done := make(chan error, 1)
	go func() {
		done <- call()
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	giveUp := func() {
		go func() {
			err := <-done
			klog.V(1).Infof("webgpu: abandoned %s finished late (err=%v)", op, err)
			if abandon != nil {
				abandon(err)
			}
		}()
	}

	select {
	case err := <-done:
		return err
	case <-timer:
		klog.Warningf("webgpu: %s timed out after %s", op, timeout)
		giveUp()
		return errors.WithStack(&TimeoutError{Op: op, After: timeout})
	case <-ctx.Done():
		giveUp()
		return errors.Wrapf(ctx.Err(), "webgpu: %s", op)
	}
}
