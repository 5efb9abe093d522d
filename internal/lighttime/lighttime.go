// Package lighttime interprets quantity-21 observer tables: one-way
// light-time extraction, round-trip deadlines, and user-facing formatting
// of ambiguous-target candidate lists.
package lighttime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseMinutes extracts the one-way light-time in minutes from the first
// data line of a quantity-21 observer table. A row reads
//
//	2018-Jan-01 10:00     12.345678
//
// so the third whitespace-separated field is the light-time column.
func ParseMinutes(table string) (float64, error) {
	var line string
	for _, l := range strings.Split(strings.TrimSpace(table), "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}
	if line == "" {
		return 0, fmt.Errorf("lighttime: empty observer table")
	}

	fields := strings.Fields(line)
	if len(fields) < 3 {
		return 0, fmt.Errorf("lighttime: missing light-time field in %q", line)
	}
	minutes, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return 0, fmt.Errorf("lighttime: parse %q: %w", fields[2], err)
	}
	return minutes, nil
}

// RoundTrip converts a one-way light-time in minutes to the round-trip
// signal duration.
func RoundTrip(minutes float64) time.Duration {
	return time.Duration(minutes * 60 * 2 * float64(time.Second))
}

// Deadline is the instant a reply becomes due: the moment the signal left
// plus the round trip.
func Deadline(sentAt time.Time, minutes float64) time.Time {
	return sentAt.Add(RoundTrip(minutes))
}

// candidateRow picks the numeric ID and name out of a HORIZONS candidate
// list row, stopping the name at an alias parenthesis or column gap.
var candidateRow = regexp.MustCompile(`^ *(-?\d+) *(.*?)(\(|  |$)`)

// FormatCandidates turns the raw candidate list from an ambiguous match
// into a numbered pick list, keeping the message within limit characters.
// Header and separator rows carry no ID and are skipped.
func FormatCandidates(raw string, limit int) string {
	var b strings.Builder
	b.WriteString("Pick a number:\n")
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		m := candidateRow.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entry := fmt.Sprintf("%s: %s\n", m[1], strings.TrimSpace(m[2]))
		if b.Len()+len(entry) > limit {
			break
		}
		b.WriteString(entry)
	}
	return strings.TrimRight(b.String(), "\n")
}
