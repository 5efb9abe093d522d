// Package gateway turns inbound mentions into tracked echo events: each
// mention becomes a HORIZONS light-time lookup, and a successful lookup
// records the event whose reply falls due after the round trip.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/user/celestialecho/internal/horizons"
	"github.com/user/celestialecho/internal/lighttime"
	"github.com/user/celestialecho/internal/types"
)

// timeLayout is the start-time format HORIZONS is given for the moment
// the mention arrived.
const timeLayout = "2006-01-02 15:04:05"

const unknownTargetReply = "Sorry, I don't recognize that location.\n\n" +
	"Consult JPL HORIZONS for valid options: https://ssd.jpl.nasa.gov/?horizons"

// LookupFunc runs one observer-table session for the given start time and
// target. Production wires this to horizons.Fetch.
type LookupFunc func(ctx context.Context, startTime, target string) (string, error)

// Gateway wires the lookup queue to the event store.
type Gateway struct {
	store      types.EventStore
	lookup     LookupFunc
	replyLimit int
	Queue      *Queue
}

// New creates a Gateway with the given concurrency limit for simultaneous
// HORIZONS sessions. replyLimit caps the length of immediate replies such
// as the ambiguous-match pick list.
func New(store types.EventStore, lookup LookupFunc, maxConcurrent int64, replyLimit int) *Gateway {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	g := &Gateway{
		store:      store,
		lookup:     lookup,
		replyLimit: replyLimit,
		Queue:      NewQueue(maxConcurrent),
	}
	g.Queue.SetProcessor(g.ProcessLookup)
	return g
}

// Start initialises the gateway's queue.
func (g *Gateway) Start(ctx context.Context) {
	g.Queue.Start(ctx)
}

// Stop drains the queue and waits for in-flight lookups.
func (g *Gateway) Stop() {
	g.Queue.Stop()
}

// HandleInbound enqueues one mention for processing.
func (g *Gateway) HandleInbound(run *Run) error {
	return g.Queue.Enqueue(run)
}

// ProcessLookup runs the HORIZONS session for one mention. An ambiguous
// or unknown target is answered immediately; a resolved target becomes a
// stored event whose reply is owed after the round-trip light time.
func (g *Gateway) ProcessLookup(run *Run) error {
	start := run.ReceivedAt.UTC().Format(timeLayout)

	table, err := g.lookup(run.Ctx, start, run.Target)
	if err != nil {
		var amb *horizons.AmbiguousMatchError
		var nf *horizons.NotFoundError
		switch {
		case errors.As(err, &amb):
			run.complete(lighttime.FormatCandidates(amb.Candidates, g.replyLimit))
			return nil
		case errors.As(err, &nf):
			run.complete(unknownTargetReply)
			return nil
		}
		return fmt.Errorf("lookup %q: %w", run.Target, err)
	}

	minutes, err := lighttime.ParseMinutes(table)
	if err != nil {
		return fmt.Errorf("lookup %q: %w", run.Target, err)
	}

	event := &types.Event{
		MessageID:     run.MessageID,
		SessionKey:    run.SessionKey,
		CelestialBody: run.Target,
		Deadline:      lighttime.Deadline(run.ReceivedAt, minutes),
		RoundTrip:     lighttime.RoundTrip(minutes).Seconds(),
		CreatedAt:     run.ReceivedAt,
	}
	if err := g.store.Insert(run.Ctx, event); err != nil {
		return fmt.Errorf("record event for %q: %w", run.Target, err)
	}

	slog.Info("echo scheduled",
		"event_id", event.ID, "target", run.Target,
		"light_minutes", minutes, "deadline", event.Deadline)
	return nil
}
