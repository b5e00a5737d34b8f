package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

func TestCalculateBackoff_SlowBaseIsNotShortened(t *testing.T) {
	base := time.Minute
	if got := calculateBackoff(3, base); got != base {
		t.Fatalf("calculateBackoff(3, %v) = %v, want %v", base, got, base)
	}
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (f *fakeRefresher) Key() string { return "books" }

func (f *fakeRefresher) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeRefresher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestStartPoller_RefreshesUntilCancelled(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeRefresher{}
	_ = StartPoller(ctx, r, 5*time.Millisecond, log)

	deadline := time.Now().Add(time.Second)
	for r.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("poller made %d refreshes, want at least 3", r.count())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	time.Sleep(20 * time.Millisecond)
	settled := r.count()
	time.Sleep(30 * time.Millisecond)
	if r.count() != settled {
		t.Fatalf("poller kept refreshing after cancel: %d -> %d", settled, r.count())
	}
}

func TestStartPoller_BacksOffOnFailure(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeRefresher{errs: []error{errors.New("unreachable"), errors.New("unreachable")}}
	_ = StartPoller(ctx, r, 20*time.Millisecond, log)

	// Two failures wait 40ms then 80ms, so the third attempt lands near 120ms.
	time.Sleep(70 * time.Millisecond)
	if got := r.count(); got != 2 {
		t.Fatalf("after 70ms got %d refreshes, want 2", got)
	}
}

func TestStartPoller_StopEndsPollingWhileParentLives(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	r := &fakeRefresher{}
	stop := StartPoller(context.Background(), r, 5*time.Millisecond, log)

	deadline := time.Now().Add(time.Second)
	for r.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("poller made %d refreshes, want at least 2", r.count())
		}
		time.Sleep(time.Millisecond)
	}
	stop()

	time.Sleep(20 * time.Millisecond)
	settled := r.count()
	time.Sleep(30 * time.Millisecond)
	if r.count() != settled {
		t.Fatalf("poller kept refreshing after stop: %d -> %d", settled, r.count())
	}
}
