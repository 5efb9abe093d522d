package lighttime

import (
	"strings"
	"testing"
	"time"
)

func TestParseMinutes(t *testing.T) {
	table := " 2018-Jan-01 10:00     12.345678\n 2018-Jan-08 10:00     12.401122"
	minutes, err := ParseMinutes(table)
	if err != nil {
		t.Fatal(err)
	}
	if minutes != 12.345678 {
		t.Errorf("minutes = %v, want 12.345678", minutes)
	}
}

func TestParseMinutesSynthesizedLine(t *testing.T) {
	// The disallowed-date special case produces a single placeholder line.
	minutes, err := ParseMinutes("2018-01-01 10:00  0.000000")
	if err != nil {
		t.Fatal(err)
	}
	if minutes != 0 {
		t.Errorf("minutes = %v, want 0", minutes)
	}
}

func TestParseMinutesSkipsLeadingBlankLines(t *testing.T) {
	minutes, err := ParseMinutes("\n\n 2018-Jan-01 10:00     3.5\n")
	if err != nil {
		t.Fatal(err)
	}
	if minutes != 3.5 {
		t.Errorf("minutes = %v, want 3.5", minutes)
	}
}

func TestParseMinutesErrors(t *testing.T) {
	if _, err := ParseMinutes(""); err == nil {
		t.Error("expected error for empty table")
	}
	if _, err := ParseMinutes("2018-Jan-01 10:00"); err == nil {
		t.Error("expected error for missing field")
	}
	if _, err := ParseMinutes("2018-Jan-01 10:00 n.a."); err == nil {
		t.Error("expected error for non-numeric field")
	}
}

func TestRoundTrip(t *testing.T) {
	// 12.345678 light-minutes one way.
	got := RoundTrip(12.345678)
	want := time.Duration(12.345678 * 120 * float64(time.Second))
	if got != want {
		t.Errorf("RoundTrip = %v, want %v", got, want)
	}
}

func TestDeadline(t *testing.T) {
	sent := time.Date(2018, 1, 1, 10, 0, 0, 0, time.UTC)
	got := Deadline(sent, 1) // one light-minute away
	if want := sent.Add(2 * time.Minute); !got.Equal(want) {
		t.Errorf("Deadline = %v, want %v", got, want)
	}
}

func TestFormatCandidates(t *testing.T) {
	raw := ` "APOPHIS*"

  ID#      Name                               Designation  IAU/aliases/other
  -------  ---------------------------------- -----------  -------------------
       -5  Apophis (alt)                       2004 MN4
    99942  Apophis                             2004 MN4
 `
	got := FormatCandidates(raw, 280)
	want := "Pick a number:\n-5: Apophis\n99942: Apophis"
	if got != want {
		t.Errorf("FormatCandidates:\n got %q\nwant %q", got, want)
	}
}

func TestFormatCandidatesRespectsLimit(t *testing.T) {
	var rows []string
	for i := 0; i < 100; i++ {
		rows = append(rows, "    10000  Somebody                            2000 XY1")
	}
	got := FormatCandidates(strings.Join(rows, "\n"), 280)
	if len(got) > 280 {
		t.Errorf("message length %d exceeds limit", len(got))
	}
	if !strings.HasPrefix(got, "Pick a number:\n10000: Somebody") {
		t.Errorf("unexpected message %q", got)
	}
}
