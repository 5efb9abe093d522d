package bot

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitMessage(t *testing.T) {
	short := "Hello world"
	parts := splitMessage(short)
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	if parts[0] != short {
		t.Errorf("expected %q, got %q", short, parts[0])
	}
}

func TestSplitMessageLong(t *testing.T) {
	long := strings.Repeat("a", 5000)
	parts := splitMessage(long)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if len(parts[0]) != maxTelegramMessage {
		t.Errorf("expected first part length %d, got %d", maxTelegramMessage, len(parts[0]))
	}
}

func TestSplitMessageKeepsRunesWhole(t *testing.T) {
	// é is two bytes, so an odd byte count before the limit would land a
	// byte-offset split in the middle of a rune.
	long := "x" + strings.Repeat("é", 3000)
	parts := splitMessage(long)
	if len(parts) < 2 {
		t.Fatalf("expected multiple parts, got %d", len(parts))
	}
	var rejoined strings.Builder
	for i, part := range parts {
		if !utf8.ValidString(part) {
			t.Errorf("part %d is not valid UTF-8", i)
		}
		if len(part) > maxTelegramMessage {
			t.Errorf("part %d length %d exceeds %d", i, len(part), maxTelegramMessage)
		}
		rejoined.WriteString(part)
	}
	if rejoined.String() != long {
		t.Error("rejoined parts differ from the original text")
	}
}

func TestStripMention(t *testing.T) {
	cases := []struct {
		in, username, want string
	}{
		{"@celestialecho Mars", "celestialecho", "Mars"},
		{"  @celestialecho   2015 HM10;  ", "celestialecho", "2015 HM10;"},
		{"Mars", "celestialecho", "Mars"},
		{"@otherbot Mars", "celestialecho", "@otherbot Mars"},
		{"Mars", "", "Mars"},
	}
	for _, c := range cases {
		if got := stripMention(c.in, c.username); got != c.want {
			t.Errorf("stripMention(%q, %q) = %q, want %q", c.in, c.username, got, c.want)
		}
	}
}

func TestBuildSessionKey(t *testing.T) {
	key := buildSessionKey(67890)
	if string(key) != "telegram:67890" {
		t.Errorf("expected 'telegram:67890', got %q", key)
	}
}

func TestChatIDFromKey(t *testing.T) {
	id, err := chatIDFromKey("telegram:67890")
	if err != nil {
		t.Fatal(err)
	}
	if id != 67890 {
		t.Errorf("chat id = %d, want 67890", id)
	}

	if _, err := chatIDFromKey("slack:general"); err == nil {
		t.Error("expected error for foreign prefix")
	}
	if _, err := chatIDFromKey("telegram:not-a-number"); err == nil {
		t.Error("expected error for non-numeric chat id")
	}
}
