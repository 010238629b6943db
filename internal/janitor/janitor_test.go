package janitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakePurger struct {
	calls  int
	cutoff time.Time
	purged int64
	err    error
}

func (f *fakePurger) PurgeUnverified(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return f.purged, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPurgeOnce_UsesRetentionCutoff(t *testing.T) {
	purger := &fakePurger{purged: 3}
	j := New(purger, discardLogger(), "0 * * * *", 72*time.Hour)

	before := time.Now().Add(-72 * time.Hour)
	j.PurgeOnce(context.Background())
	after := time.Now().Add(-72 * time.Hour)

	if purger.calls != 1 {
		t.Fatalf("calls = %d, want 1", purger.calls)
	}
	if purger.cutoff.Before(before) || purger.cutoff.After(after) {
		t.Errorf("cutoff = %v, want within [%v, %v]", purger.cutoff, before, after)
	}
}

func TestPurgeOnce_StoreErrorDoesNotPanic(t *testing.T) {
	purger := &fakePurger{err: errors.New("conn refused")}
	j := New(purger, discardLogger(), "0 * * * *", time.Hour)

	j.PurgeOnce(context.Background())

	if purger.calls != 1 {
		t.Fatalf("calls = %d, want 1", purger.calls)
	}
}

func TestStart_BadScheduleReturnsError(t *testing.T) {
	j := New(&fakePurger{}, discardLogger(), "not a cron expr", time.Hour)

	if err := j.Start(context.Background()); err == nil {
		t.Fatal("expected error for malformed schedule")
	}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	j := New(&fakePurger{}, discardLogger(), "0 * * * *", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancel")
	}
}
