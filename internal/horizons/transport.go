package horizons

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// Transport is a bidirectional text channel to the HORIZONS service.
// Implementations must make Close idempotent; the session closes the
// transport on every exit path.
type Transport interface {
	// Send writes one line of input, terminated for the remote side.
	Send(line string) error
	// Read fills p with newly arrived bytes, blocking until data arrives
	// or the deadline passes. A deadline expiry is reported as a timeout
	// error satisfying net.Error.
	Read(p []byte, deadline time.Time) (int, error)
	Close() error
}

// Dial opens a telnet channel to host:port. An unreachable or unresolvable
// endpoint is reported as a *ConnectionError.
func Dial(host string, port int, timeout time.Duration) (Transport, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	return &telnetConn{conn: conn}, nil
}

// Telnet protocol bytes. HORIZONS sends a handful of option negotiations
// on connect; we strip them from the stream and answer nothing, which the
// server tolerates.
const (
	telnetSE   = 240
	telnetSB   = 250
	telnetWill = 251
	telnetDont = 254
	telnetIAC  = 255
)

// iac filter states; negotiation sequences may be split across reads.
const (
	iacData = iota
	iacSeenIAC
	iacSeenVerb
	iacSubneg
	iacSubnegIAC
)

type telnetConn struct {
	conn net.Conn

	iacState int

	closeOnce sync.Once
	closeErr  error
}

func (t *telnetConn) Send(line string) error {
	if _, err := t.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("horizons: send: %w", err)
	}
	return nil
}

func (t *telnetConn) Read(p []byte, deadline time.Time) (int, error) {
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return 0, fmt.Errorf("horizons: set read deadline: %w", err)
	}
	n, err := t.conn.Read(p)
	return t.stripIAC(p[:n]), err
}

func (t *telnetConn) Close() error {
	t.closeOnce.Do(func() { t.closeErr = t.conn.Close() })
	return t.closeErr
}

// stripIAC removes telnet command sequences from b in place and returns
// the number of data bytes kept. Filter state persists across calls.
func (t *telnetConn) stripIAC(b []byte) int {
	kept := 0
	for _, c := range b {
		switch t.iacState {
		case iacData:
			if c == telnetIAC {
				t.iacState = iacSeenIAC
			} else {
				b[kept] = c
				kept++
			}
		case iacSeenIAC:
			switch {
			case c == telnetIAC:
				// Escaped literal 0xFF.
				b[kept] = c
				kept++
				t.iacState = iacData
			case c == telnetSB:
				t.iacState = iacSubneg
			case c >= telnetWill && c <= telnetDont:
				t.iacState = iacSeenVerb
			default:
				t.iacState = iacData
			}
		case iacSeenVerb:
			// Option byte of WILL/WONT/DO/DONT.
			t.iacState = iacData
		case iacSubneg:
			if c == telnetIAC {
				t.iacState = iacSubnegIAC
			}
		case iacSubnegIAC:
			if c == telnetSE {
				t.iacState = iacData
			} else {
				t.iacState = iacSubneg
			}
		}
	}
	return kept
}
