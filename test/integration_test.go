//go:build integration

package test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/celestialecho/internal/delivery"
	"github.com/user/celestialecho/internal/gateway"
	"github.com/user/celestialecho/internal/horizons"
	"github.com/user/celestialecho/internal/scheduler"
	"github.com/user/celestialecho/internal/state"
	"github.com/user/celestialecho/internal/types"
)

func TestEndToEndEchoPipeline(t *testing.T) {
	dir := t.TempDir()

	events, err := state.Open(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer events.Close()

	// Zero light-minutes puts the reply deadline at the mention time, so
	// the first sweep owes the echo immediately.
	lookup := func(_ context.Context, startTime, _ string) (string, error) {
		return startTime + "  0.000000", nil
	}

	gw := gateway.New(events, lookup, 2, 280)
	ctx := context.Background()
	gw.Start(ctx)
	defer gw.Stop()

	received := time.Now().UTC().Add(-time.Minute)
	run := gateway.NewRun("test:1", 100, "Moon", received)
	if err := gw.HandleInbound(run); err != nil {
		t.Fatal(err)
	}
	if !gw.Queue.WaitIdle(5 * time.Second) {
		t.Fatal("queue did not go idle")
	}

	stored, err := events.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 event, got %d", len(stored))
	}
	if !stored[0].Due(time.Now().UTC()) {
		t.Fatalf("event with zero round trip should be due, deadline=%v", stored[0].Deadline)
	}

	var mu sync.Mutex
	var sent []string
	reg := delivery.NewRegistry()
	reg.Register("test:", func(_ types.SessionKey, _ int64, text string) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, text)
		return nil
	})

	sched := scheduler.New(events, lookup, reg.Deliver, "")
	sched.Sweep(ctx)

	mu.Lock()
	if len(sent) != 1 {
		mu.Unlock()
		t.Fatalf("expected 1 delivery, got %d", len(sent))
	}
	if !strings.Contains(sent[0], "Echo from Moon!") {
		t.Errorf("unexpected echo text %q", sent[0])
	}
	mu.Unlock()

	// The event is marked replied; a second sweep owes nothing.
	sched.Sweep(ctx)
	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 1 {
		t.Errorf("second sweep delivered %d extra replies", len(sent)-1)
	}
}

func TestEndToEndAmbiguousReply(t *testing.T) {
	dir := t.TempDir()

	events, err := state.Open(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer events.Close()

	lookup := func(_ context.Context, _, target string) (string, error) {
		return "", &horizons.AmbiguousMatchError{
			Target:     target,
			Candidates: "\n    99942  Apophis     2004 MN4\n ",
		}
	}

	gw := gateway.New(events, lookup, 2, 280)
	ctx := context.Background()
	gw.Start(ctx)
	defer gw.Stop()

	responses := make(chan string, 1)
	run := gateway.NewRun("test:1", 100, "Apophis", time.Now().UTC())
	run.OnComplete = func(s string) { responses <- s }
	if err := gw.HandleInbound(run); err != nil {
		t.Fatal(err)
	}
	if !gw.Queue.WaitIdle(5 * time.Second) {
		t.Fatal("queue did not go idle")
	}

	select {
	case got := <-responses:
		if !strings.HasPrefix(got, "Pick a number:") {
			t.Errorf("unexpected reply %q", got)
		}
	default:
		t.Fatal("no immediate reply for ambiguous target")
	}

	stored, err := events.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 0 {
		t.Errorf("ambiguous lookup must not record an event, got %d", len(stored))
	}
}
