package horizons

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"time"
)

// Pattern is one candidate prompt fragment. Submatch groups become the
// Captures of a MatchResult.
type Pattern struct {
	name string
	re   *regexp.Regexp
}

// NewPattern compiles expr. An invalid expression causes a panic; all
// session patterns are package-level literals.
func NewPattern(name, expr string) Pattern {
	return Pattern{name: name, re: regexp.MustCompile(expr)}
}

func (p Pattern) Name() string { return p.name }

// MatchResult is the outcome of one AwaitAny call. Either TimedOut is set,
// or Index names the pattern (in the order given) that matched first.
type MatchResult struct {
	Index    int
	Pattern  string
	Captures []string
	TimedOut bool
}

// Matcher accumulates the inbound character stream and tests it against
// ordered candidate pattern sets. Buffered text that arrives after a match
// point is retained for later waits; text up to and including the match is
// consumed.
type Matcher struct {
	transport Transport
	buf       []byte
}

func NewMatcher(t Transport) *Matcher {
	return &Matcher{transport: t}
}

// AwaitAny reads from the transport until one of the patterns matches the
// accumulated buffer or the timeout elapses. Patterns are tested in the
// caller-supplied order on every new chunk; the first that matches wins.
// Absence of a match within the window is reported via TimedOut, never as
// an error — the caller decides how fatal that is.
func (m *Matcher) AwaitAny(ctx context.Context, patterns []Pattern, timeout time.Duration) (MatchResult, error) {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	chunk := make([]byte, 4096)
	for {
		for i, p := range patterns {
			loc := p.re.FindSubmatchIndex(m.buf)
			if loc == nil {
				continue
			}
			res := MatchResult{Index: i, Pattern: p.name}
			for g := 1; 2*g < len(loc); g++ {
				if loc[2*g] < 0 {
					res.Captures = append(res.Captures, "")
					continue
				}
				res.Captures = append(res.Captures, string(m.buf[loc[2*g]:loc[2*g+1]]))
			}
			// Consume through the match end only; trailing bytes stay
			// buffered for the next wait.
			m.buf = append(m.buf[:0:0], m.buf[loc[1]:]...)
			return res, nil
		}

		if err := ctx.Err(); err != nil {
			return MatchResult{}, err
		}
		if !time.Now().Before(deadline) {
			return MatchResult{TimedOut: true}, nil
		}

		n, err := m.transport.Read(chunk, deadline)
		if n > 0 {
			m.buf = append(m.buf, chunk[:n]...)
		}
		if err != nil {
			var ne net.Error
			switch {
			case errors.As(err, &ne) && ne.Timeout():
				// Give whatever arrived with the error one last test.
				if n == 0 {
					return MatchResult{TimedOut: true}, nil
				}
				deadline = time.Now()
			case errors.Is(err, io.EOF):
				// Remote hung up; nothing further can match once the
				// buffered remainder has been tested.
				if n == 0 {
					return MatchResult{TimedOut: true}, nil
				}
				deadline = time.Now()
			default:
				return MatchResult{}, fmt.Errorf("horizons: read: %w", err)
			}
		}
	}
}

// Buffered returns the text accumulated since the last match, for
// diagnostics.
func (m *Matcher) Buffered() string { return string(m.buf) }

func describePatterns(patterns []Pattern) string {
	names := make([]string, len(patterns))
	for i, p := range patterns {
		names[i] = p.name
	}
	return strings.Join(names, " | ")
}
