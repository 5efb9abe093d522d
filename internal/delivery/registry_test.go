package delivery

import (
	"testing"

	"github.com/user/celestialecho/internal/types"
)

func TestRegistryDeliver(t *testing.T) {
	reg := NewRegistry()

	var gotKey types.SessionKey
	var gotMessageID int64
	var gotText string
	reg.Register("test:", func(key types.SessionKey, messageID int64, text string) error {
		gotKey = key
		gotMessageID = messageID
		gotText = text
		return nil
	})

	if err := reg.Deliver("test:123", 42, "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "test:123" {
		t.Errorf("expected session key %q, got %q", "test:123", gotKey)
	}
	if gotMessageID != 42 {
		t.Errorf("expected message id 42, got %d", gotMessageID)
	}
	if gotText != "hello" {
		t.Errorf("expected text %q, got %q", "hello", gotText)
	}
}

func TestRegistryNoHandler(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Deliver("unknown:123", 1, "hello"); err == nil {
		t.Fatal("expected error for unregistered prefix, got nil")
	}
}

func TestRegistryMultiplePrefixes(t *testing.T) {
	reg := NewRegistry()

	var telegramCalls, webhookCalls int
	reg.Register("telegram:", func(types.SessionKey, int64, string) error {
		telegramCalls++
		return nil
	})
	reg.Register("webhook:", func(types.SessionKey, int64, string) error {
		webhookCalls++
		return nil
	})

	if err := reg.Deliver("telegram:42", 1, "msg1"); err != nil {
		t.Fatalf("telegram deliver error: %v", err)
	}
	if err := reg.Deliver("webhook:general", 2, "msg2"); err != nil {
		t.Fatalf("webhook deliver error: %v", err)
	}

	if telegramCalls != 1 {
		t.Errorf("expected 1 telegram call, got %d", telegramCalls)
	}
	if webhookCalls != 1 {
		t.Errorf("expected 1 webhook call, got %d", webhookCalls)
	}
}
