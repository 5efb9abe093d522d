package horizons

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Phase is one discrete step of the scripted dialogue. Exactly one phase is
// active at a time; each owns an ordered rule list and every match resolves
// to exactly one next phase or to a terminal outcome.
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseAwaitingMainPrompt
	PhaseSubmittingTarget
	PhaseResolvingAmbiguity
	PhaseSelectingEphemerisType
	PhaseSettingCenter
	PhaseSettingStart
	PhaseSettingStop
	PhaseSettingStep
	PhaseConfirmingDefaults
	PhaseSettingQuantities
	PhaseAwaitingTable
)

var phaseNames = map[Phase]string{
	PhaseConnecting:             "connecting",
	PhaseAwaitingMainPrompt:     "awaiting-main-prompt",
	PhaseSubmittingTarget:       "submitting-target",
	PhaseResolvingAmbiguity:     "resolving-ambiguity",
	PhaseSelectingEphemerisType: "selecting-ephemeris-type",
	PhaseSettingCenter:          "setting-center",
	PhaseSettingStart:           "setting-start",
	PhaseSettingStop:            "setting-stop",
	PhaseSettingStep:            "setting-step",
	PhaseConfirmingDefaults:     "confirming-defaults",
	PhaseSettingQuantities:      "setting-quantities",
	PhaseAwaitingTable:          "awaiting-table",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Config holds the per-session settings that used to be ambient in the
// original scripted interpreter.
type Config struct {
	Host        string
	Port        int
	DialTimeout time.Duration
	// StepTimeout bounds every individual wait, including the wait for
	// the closing table marker. It is not an overall session deadline.
	StepTimeout time.Duration
	Logger      *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.StepTimeout == 0 {
		c.StepTimeout = DefaultStepTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

const (
	DefaultHost        = "horizons.jpl.nasa.gov"
	DefaultPort        = 6775
	DefaultDialTimeout = 20 * time.Second
	DefaultStepTimeout = 30 * time.Second

	// DefaultStepSize is the tabulation interval sent at the
	// output-interval prompt.
	DefaultStepSize = "7d"
	// DefaultQuantities selects the one-way light-time column.
	DefaultQuantities = "21"
)

// Request describes one observer-table query. Target is passed to HORIZONS
// verbatim: designation lookups ("2015 HM10;") are space- and
// case-sensitive there, name lookups are not, so no normalization happens
// here.
type Request struct {
	Target     string
	StartTime  string
	StepSize   string
	Quantities string
}

func (r Request) withDefaults() Request {
	if r.StepSize == "" {
		r.StepSize = DefaultStepSize
	}
	if r.Quantities == "" {
		r.Quantities = DefaultQuantities
	}
	return r
}

// Prompt fragments observed on the HORIZONS telnet service. Order inside a
// rule list encodes priority when several could plausibly match.
var (
	patMainPrompt     = NewPattern("main-prompt", `Horizons> `)
	patContinue       = NewPattern("continue-prompt", `Continue \[ <cr>=yes, n=no, \? \] :`)
	patSelect         = NewPattern("select-prompt", `\[E\]phemeris.*<cr>:`)
	patMultipleMatch  = NewPattern("multiple-matches", `(?s)Multiple major-bodies match string(.*?)Number of matches`)
	patNoMatch        = NewPattern("no-matches", `No matches found`)
	patEphemerisType  = NewPattern("ephemeris-type-prompt", `Observe, Elements, Vectors`)
	patCenter         = NewPattern("coordinate-center-prompt", `Coordinate center`)
	patDisallowedDate = NewPattern("disallowed-date", `disallowed`)
	patStartUT        = NewPattern("starting-ut-prompt", `Starting UT`)
	patEndUT          = NewPattern("ending-prompt", `Ending\s+UT`)
	patInterval       = NewPattern("output-interval-prompt", `Output interval`)
	patAcceptDefault  = NewPattern("accept-default-prompt", `Accept default output`)
	patQuantities     = NewPattern("select-quantities-prompt", `Select table quantities`)
)

type action int

const (
	actSend action = iota
	actFailAmbiguous
	actFailNotFound
	actSynthesize
	actExtract
)

// rule binds one expected pattern to its response. A matched actSend rule
// sends the text and advances to next; the terminal actions end the session.
type rule struct {
	pat  Pattern
	act  action
	send string
	next Phase
}

// sessionRules builds the full transition table for one request. The
// target-resolution rules are shared: HORIZONS presents them either
// directly after the target is submitted or nested behind a "Continue?"
// confirmation, and both entry points must behave identically.
func sessionRules(req Request) map[Phase][]rule {
	resolve := []rule{
		{pat: patSelect, act: actSend, send: "E", next: PhaseSelectingEphemerisType},
		{pat: patMultipleMatch, act: actFailAmbiguous},
		{pat: patNoMatch, act: actFailNotFound},
	}

	submitting := make([]rule, 0, len(resolve)+1)
	submitting = append(submitting, rule{pat: patContinue, act: actSend, send: "yes", next: PhaseResolvingAmbiguity})
	submitting = append(submitting, resolve...)

	return map[Phase][]rule{
		PhaseConnecting: {
			{pat: patMainPrompt, act: actSend, send: "PAGE", next: PhaseAwaitingMainPrompt},
		},
		PhaseAwaitingMainPrompt: {
			{pat: patMainPrompt, act: actSend, send: req.Target, next: PhaseSubmittingTarget},
		},
		PhaseSubmittingTarget:   submitting,
		PhaseResolvingAmbiguity: resolve,
		PhaseSelectingEphemerisType: {
			{pat: patEphemerisType, act: actSend, send: "O", next: PhaseSettingCenter},
		},
		PhaseSettingCenter: {
			{pat: patCenter, act: actSend, send: "", next: PhaseSettingStart},
		},
		PhaseSettingStart: {
			{pat: patDisallowedDate, act: actSynthesize},
			{pat: patStartUT, act: actSend, send: req.StartTime, next: PhaseSettingStop},
		},
		PhaseSettingStop: {
			{pat: patDisallowedDate, act: actSynthesize},
			{pat: patEndUT, act: actSend, send: "", next: PhaseSettingStep},
		},
		PhaseSettingStep: {
			{pat: patInterval, act: actSend, send: req.StepSize, next: PhaseConfirmingDefaults},
		},
		PhaseConfirmingDefaults: {
			{pat: patAcceptDefault, act: actSend, send: "Y", next: PhaseSettingQuantities},
		},
		PhaseSettingQuantities: {
			{pat: patQuantities, act: actSend, send: req.Quantities, next: PhaseAwaitingTable},
		},
		PhaseAwaitingTable: {
			{pat: patObserverTable, act: actExtract},
		},
	}
}

// Fetch runs one complete observer-table session against the configured
// endpoint. The returned string is the text strictly between the table
// markers, or a synthesized single line for the disallowed-date case.
// Failures are *ConnectionError, *TimeoutError, *AmbiguousMatchError or
// *NotFoundError; all of them abort the session with the transport closed.
func Fetch(ctx context.Context, cfg Config, req Request) (string, error) {
	cfg = cfg.withDefaults()
	t, err := Dial(cfg.Host, cfg.Port, cfg.DialTimeout)
	if err != nil {
		return "", err
	}
	return FetchWith(ctx, t, cfg, req)
}

// FetchWith runs the session over an already-open transport. The transport
// is closed on every exit path. Exposed so callers can substitute a
// scripted transport.
func FetchWith(ctx context.Context, t Transport, cfg Config, req Request) (_ string, err error) {
	cfg = cfg.withDefaults()
	req = req.withDefaults()
	defer func() {
		if cerr := t.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("horizons: close: %w", cerr)
		}
	}()

	m := NewMatcher(t)
	rules := sessionRules(req)
	phase := PhaseConnecting

	for {
		rs := rules[phase]
		pats := make([]Pattern, len(rs))
		for i, r := range rs {
			pats[i] = r.pat
		}

		res, werr := m.AwaitAny(ctx, pats, cfg.StepTimeout)
		if werr != nil {
			return "", werr
		}
		if res.TimedOut {
			return "", &TimeoutError{Phase: phase, Waiting: describePatterns(pats), Window: cfg.StepTimeout}
		}
		cfg.Logger.Debug("horizons: prompt matched", "phase", phase.String(), "pattern", res.Pattern)

		r := rs[res.Index]
		switch r.act {
		case actSend:
			if serr := t.Send(r.send); serr != nil {
				return "", serr
			}
			phase = r.next
		case actFailAmbiguous:
			return "", &AmbiguousMatchError{Target: req.Target, Candidates: res.Captures[0]}
		case actFailNotFound:
			return "", &NotFoundError{Target: req.Target}
		case actSynthesize:
			// HORIZONS refuses some start dates outright. The original
			// workflow treats that as a soft success and fabricates a
			// zero light-time line for the requested instant.
			cfg.Logger.Warn("horizons: start date disallowed, synthesizing result", "start", req.StartTime)
			return req.StartTime + "  0.000000", nil
		case actExtract:
			// Leave the post-table menu politely before hanging up.
			_ = t.Send("N")
			return res.Captures[0], nil
		}
	}
}
