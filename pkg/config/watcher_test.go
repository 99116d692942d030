package config

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "errors:\n  alert_threshold: 3\n")

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func() error {
			reloads.Add(1)
			return nil
		})
	}()

	// Give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("errors:\n  alert_threshold: 9\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for reloads.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if reloads.Load() == 0 {
		t.Fatal("expected at least one reload")
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Watch returned error: %v", err)
	}
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
	}

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(120 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback ran %d times after Stop, want 0", got)
	}
}
