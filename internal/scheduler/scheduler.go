// Package scheduler delivers echo replies once their light-time deadline
// has passed. A single cron entry sweeps the event store, fetches a fresh
// observer table for each due event, and routes the reply back to the
// conversation that asked.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/user/celestialecho/internal/lighttime"
	"github.com/user/celestialecho/internal/types"
)

// DefaultSchedule is the sweep cadence when the config leaves it unset.
const DefaultSchedule = "@every 1m"

const timeLayout = "2006-01-02 15:04:05"

// LookupFunc runs one observer-table session for the given start time and
// target.
type LookupFunc func(ctx context.Context, startTime, target string) (string, error)

// Deliver routes one reply back to the conversation that owns the event.
type Deliver func(key types.SessionKey, messageID int64, text string) error

// Scheduler sweeps the event store on a cron schedule and replies to
// events whose deadline has passed.
type Scheduler struct {
	store    types.EventStore
	lookup   LookupFunc
	deliver  Deliver
	schedule string
	cron     *cron.Cron

	// sweeping serializes sweeps: a lookup can hold due events for many
	// seconds, and a second sweep over the same rows would deliver the
	// echo twice before MarkReplied lands.
	sweeping sync.Mutex
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Scheduler sweeping on the given cron schedule.
func New(store types.EventStore, lookup LookupFunc, deliver Deliver, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Scheduler{
		store:    store,
		lookup:   lookup,
		deliver:  deliver,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the sweep entry and starts the cron ticker.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.Sweep(context.Background())
	})
	if err != nil {
		return fmt.Errorf("invalid reply schedule %q: %w", s.schedule, err)
	}
	slog.Info("reply sweep scheduled", "schedule", s.schedule)
	s.cron.Start()
	return nil
}

// Stop stops the cron ticker.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Sweep replies to every event whose deadline has passed. A failed reply
// is logged and left unreplied so the next sweep picks it up again. At
// most one sweep runs at a time; an invocation that finds another still
// in flight returns immediately and leaves the events to it.
func (s *Scheduler) Sweep(ctx context.Context) {
	if !s.sweeping.TryLock() {
		slog.Debug("reply sweep already running, skipping")
		return
	}
	defer s.sweeping.Unlock()

	due, err := s.store.ListDue(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("listing due events", "error", err)
		return
	}
	for _, event := range due {
		if err := s.replyTo(ctx, event); err != nil {
			slog.Error("echo reply failed",
				"event_id", event.ID, "target", event.CelestialBody, "error", err)
			continue
		}
		slog.Info("echo delivered",
			"event_id", event.ID, "target", event.CelestialBody,
			"session_key", string(event.SessionKey))
	}
}

// replyTo fetches a fresh observer table for the event's original start
// time, composes the echo, delivers it, and marks the event replied.
func (s *Scheduler) replyTo(ctx context.Context, event *types.Event) error {
	start := event.CreatedAt.UTC().Format(timeLayout)
	table, err := s.lookup(ctx, start, event.CelestialBody)
	if err != nil {
		return fmt.Errorf("lookup %q: %w", event.CelestialBody, err)
	}
	minutes, err := lighttime.ParseMinutes(table)
	if err != nil {
		return fmt.Errorf("lookup %q: %w", event.CelestialBody, err)
	}

	if err := s.deliver(event.SessionKey, event.MessageID, composeEcho(event, minutes)); err != nil {
		return fmt.Errorf("deliver reply: %w", err)
	}
	if err := s.store.MarkReplied(ctx, event.ID); err != nil {
		return fmt.Errorf("mark replied: %w", err)
	}
	return nil
}

// composeEcho builds the reply text for one due event.
func composeEcho(event *types.Event, minutes float64) string {
	trip := time.Duration(event.RoundTrip * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("Echo from %s! Your signal made the round trip in %s (%.6f light-minutes each way).",
		event.CelestialBody, trip, minutes)
}
