// Package horizons drives the JPL HORIZONS interactive telnet service
// through its observer-table workflow.
//
// The remote side is a free-text prompt system: the same logical step can
// legitimately produce several different next prompts, and the only failure
// signal is the absence of an expected prompt within a time window. The
// package models the dialogue as an explicit finite-state machine: each
// [Phase] owns an ordered list of candidate patterns, a [Matcher] waits for
// the first of them against the accumulated character stream, and the
// matched pattern determines the scripted response and the next phase.
//
// One call to [Fetch] is one complete session:
//
//	table, err := horizons.Fetch(ctx, horizons.Config{}, horizons.Request{
//		Target:    "2015 HM10;",
//		StartTime: "2018-01-01 10:00",
//	})
//
// The returned text is the payload strictly between the $$SOE and $$EOE
// markers. Sessions are stateless across invocations and never retried:
// a timeout or a recognized failure prompt aborts the whole session and
// closes the transport.
package horizons
