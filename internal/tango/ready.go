package tango

import (
	"context"
	"time"

	"github.com/nexdatas/nxstools/internal/model"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
)

const defaultReadyInterval = 10 * time.Millisecond

var errStillRunning = errors.New("device is RUNNING")

// ReadyOptions bounds WaitReady.
type ReadyOptions struct {
	Interval    time.Duration
	MaxAttempts uint64
	// Timeout is an overall limit, zero means no limit beyond the attempts.
	Timeout time.Duration
}

// WaitReady polls the device state every interval until the device answers
// with a state other than RUNNING, at most MaxAttempts times.
func WaitReady(ctx context.Context, proxy Proxy, opts ReadyOptions) (State, error) {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultReadyInterval
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	backoff := retry.WithMaxRetries(opts.MaxAttempts-1, retry.NewConstant(opts.Interval))

	state := StateUnknown
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error

		state, err = proxy.State(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}

		if state == StateRunning {
			return retry.RetryableError(errStillRunning)
		}

		return nil
	})
	if err != nil {
		return state, errors.Wrap(model.ErrConnection, proxy.Name()+" not ready: "+err.Error())
	}

	return state, nil
}
