package utils

import (
	"errors"
	"time"
)

var ErrStopTimeout = errors.New("worker did not stop in time")

// AwaitStop waits for a worker's exit result on done, up to timeout.
func AwaitStop(done <-chan error, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrStopTimeout
	}
}
