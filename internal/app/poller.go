package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 30 * time.Second
)

// Refresher is a query the poller keeps warm.
type Refresher interface {
	Key() string
	Refresh(ctx context.Context) error
}

// StartPoller launches a background goroutine that refreshes r every
// interval, backing off exponentially while fetches fail. It returns
// immediately; the goroutine runs until ctx is done or stop is called.
func StartPoller(ctx context.Context, r Refresher, interval time.Duration, log logrus.FieldLogger) (stop context.CancelFunc) {
	ctx, stop = context.WithCancel(ctx)
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("query", r.Key())

	go func() {
		failures := 0
		for {
			wait := interval
			if err := r.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				wait = calculateBackoff(failures, interval)
				log.WithError(err).WithFields(logrus.Fields{
					"failures": failures,
					"retry_in": wait,
				}).Warn("background refresh failed")
			} else if failures > 0 {
				log.WithField("failures", failures).Info("background refresh recovered")
				failures = 0
			}

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
	return stop
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff. The cap never shortens the normal cadence.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	if failures > 16 {
		failures = 16
	}
	backoff := base << failures
	if backoff > maxBackoff || backoff <= 0 {
		return max(maxBackoff, base)
	}
	return backoff
}
