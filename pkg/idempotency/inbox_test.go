package idempotency

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateKeyMinuteTolerance(t *testing.T) {
	ts := time.Date(2026, 1, 15, 9, 30, 5, 0, time.UTC)

	base := GenerateKey("1234567890", "MEMBER001", "AUTH-REF-42", ts)
	if base == "" {
		t.Fatal("empty key")
	}

	// A gateway retry within the same minute hashes identically.
	retry := GenerateKey("1234567890", "MEMBER001", "AUTH-REF-42", ts.Add(40*time.Second))
	if retry != base {
		t.Errorf("same-minute retry produced a different key")
	}

	nextMinute := GenerateKey("1234567890", "MEMBER001", "AUTH-REF-42", ts.Add(time.Minute))
	if nextMinute == base {
		t.Errorf("next-minute request deduplicated against the original")
	}
	otherRef := GenerateKey("1234567890", "MEMBER001", "AUTH-REF-43", ts)
	if otherRef == base {
		t.Errorf("different request reference produced the same key")
	}
}

func TestIsTerminalError(t *testing.T) {
	terminal := []error{
		errors.New("map interchange 000000101: validation failed"),
		errors.New("parse inbound interchange: malformed segment DTP"),
		errors.New("wrong transaction set 270"),
		errors.New("authorization auth-9 not found"),
	}
	for _, err := range terminal {
		if !isTerminalError(err) {
			t.Errorf("isTerminalError(%q) = false, want true", err)
		}
	}

	if isTerminalError(errors.New("connection refused")) {
		t.Error("transient network error classified terminal")
	}
}
