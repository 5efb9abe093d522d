package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/celestialecho/internal/types"
)

// fakeStore is an in-memory types.EventStore for sweep tests.
type fakeStore struct {
	mu     sync.Mutex
	events []*types.Event
}

func (f *fakeStore) Insert(_ context.Context, event *types.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) Get(_ context.Context, id int64) (*types.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeStore) List(_ context.Context, _ int) ([]*types.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Event(nil), f.events...), nil
}

func (f *fakeStore) ListDue(_ context.Context, now time.Time) ([]*types.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []*types.Event
	for _, e := range f.events {
		if e.Due(now) {
			due = append(due, e)
		}
	}
	return due, nil
}

func (f *fakeStore) MarkReplied(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id {
			e.Replied = true
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeStore) MaxMessageID(_ context.Context) (int64, error) {
	return 0, nil
}

const testTable = " 2018-Jan-01 10:00     12.345678\n 2018-Jan-08 10:00     12.401122"

func okLookup(_ context.Context, _, _ string) (string, error) {
	return testTable, nil
}

type delivered struct {
	key       types.SessionKey
	messageID int64
	text      string
}

func TestSweepRepliesToDueEvents(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{}
	for _, e := range []*types.Event{
		{SessionKey: "telegram:1", MessageID: 10, CelestialBody: "Mars",
			Deadline: now.Add(-time.Minute), RoundTrip: 720, CreatedAt: now.Add(-13 * time.Minute)},
		{SessionKey: "telegram:2", MessageID: 11, CelestialBody: "Pluto",
			Deadline: now.Add(10 * time.Hour), RoundTrip: 36000, CreatedAt: now},
		{SessionKey: "telegram:3", MessageID: 12, CelestialBody: "Venus",
			Replied: true, Deadline: now.Add(-time.Hour), RoundTrip: 600, CreatedAt: now.Add(-2 * time.Hour)},
	} {
		if err := store.Insert(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}

	var mu sync.Mutex
	var sent []delivered
	deliver := func(key types.SessionKey, messageID int64, text string) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, delivered{key, messageID, text})
		return nil
	}

	sched := New(store, okLookup, deliver, "")
	sched.Sweep(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(sent))
	}
	if sent[0].key != "telegram:1" || sent[0].messageID != 10 {
		t.Errorf("delivered to %s message %d", sent[0].key, sent[0].messageID)
	}
	if !strings.Contains(sent[0].text, "Echo from Mars!") {
		t.Errorf("unexpected reply text %q", sent[0].text)
	}
	if !strings.Contains(sent[0].text, "12.345678 light-minutes") {
		t.Errorf("reply missing light time: %q", sent[0].text)
	}

	got, err := store.Get(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Replied {
		t.Error("due event was not marked replied")
	}
}

func TestSweepLeavesEventForRetryOnFailure(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{}
	event := &types.Event{SessionKey: "telegram:1", MessageID: 10, CelestialBody: "Mars",
		Deadline: now.Add(-time.Minute), RoundTrip: 720, CreatedAt: now.Add(-13 * time.Minute)}
	if err := store.Insert(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	failing := func(_ context.Context, _, _ string) (string, error) {
		return "", errors.New("connection refused")
	}
	var deliveries atomic.Int32
	deliver := func(types.SessionKey, int64, string) error {
		deliveries.Add(1)
		return nil
	}

	sched := New(store, failing, deliver, "")
	sched.Sweep(context.Background())

	if n := deliveries.Load(); n != 0 {
		t.Errorf("expected no deliveries after failed lookup, got %d", n)
	}
	got, err := store.Get(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Replied {
		t.Error("failed event must stay unreplied for the next sweep")
	}
}

func TestSweepSkipsWhileSweepInFlight(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{}
	event := &types.Event{SessionKey: "telegram:1", MessageID: 10, CelestialBody: "Mars",
		Deadline: now.Add(-time.Minute), RoundTrip: 720, CreatedAt: now.Add(-13 * time.Minute)}
	if err := store.Insert(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	// The lookup blocks long enough for the second sweep to start while
	// the first still holds the due event, before MarkReplied lands.
	firstStarted := make(chan struct{})
	var startedOnce sync.Once
	slowLookup := func(_ context.Context, _, _ string) (string, error) {
		startedOnce.Do(func() { close(firstStarted) })
		time.Sleep(100 * time.Millisecond)
		return testTable, nil
	}

	var deliveries atomic.Int32
	deliver := func(types.SessionKey, int64, string) error {
		deliveries.Add(1)
		return nil
	}

	sched := New(store, slowLookup, deliver, "")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Sweep(context.Background())
	}()
	<-firstStarted
	sched.Sweep(context.Background())
	wg.Wait()

	if n := deliveries.Load(); n != 1 {
		t.Fatalf("event delivered %d times, want exactly 1", n)
	}
	got, err := store.Get(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Replied {
		t.Error("due event was not marked replied")
	}
}

func TestSchedulerFiresOnCron(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{}
	event := &types.Event{SessionKey: "telegram:1", MessageID: 10, CelestialBody: "Mars",
		Deadline: now.Add(-time.Minute), RoundTrip: 720, CreatedAt: now.Add(-13 * time.Minute)}
	if err := store.Insert(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	var deliveries atomic.Int32
	deliver := func(types.SessionKey, int64, string) error {
		deliveries.Add(1)
		return nil
	}

	sched := New(store, okLookup, deliver, "* * * * * *")
	if err := sched.Start(); err != nil {
		t.Fatal(err)
	}
	defer sched.Stop()

	deadline := time.After(2500 * time.Millisecond)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			t.Fatalf("sweep did not fire within 2.5s, deliveries=%d", deliveries.Load())
		case <-ticker.C:
			if deliveries.Load() > 0 {
				return
			}
		}
	}
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	sched := New(&fakeStore{}, okLookup, func(types.SessionKey, int64, string) error { return nil }, "not a schedule")
	if err := sched.Start(); err == nil {
		sched.Stop()
		t.Fatal("expected error for invalid schedule")
	}
}
