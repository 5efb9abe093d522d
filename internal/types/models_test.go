package types

import (
	"testing"
	"time"
)

func TestEventDue(t *testing.T) {
	now := time.Date(2018, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		replied bool
		dl      time.Time
		want    bool
	}{
		{"past deadline unreplied", false, now.Add(-time.Minute), true},
		{"exact deadline unreplied", false, now, true},
		{"future deadline", false, now.Add(time.Minute), false},
		{"past deadline already replied", true, now.Add(-time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Event{Replied: tt.replied, Deadline: tt.dl}
			if got := e.Due(now); got != tt.want {
				t.Errorf("Due = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewSessionKey(t *testing.T) {
	if key := NewSessionKey("telegram", "12345"); key != "telegram:12345" {
		t.Errorf("got %q, want telegram:12345", key)
	}
}

func TestNewRunIDUnique(t *testing.T) {
	if NewRunID() == NewRunID() {
		t.Error("expected distinct run IDs")
	}
}
