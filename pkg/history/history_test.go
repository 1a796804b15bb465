package history

import (
	"errors"
	"fmt"
	"testing"

	"frostgreet/pkg/domain"
)

func TestHistoryKeepsInsertionOrder(t *testing.T) {
	h := New()
	for i := 0; i < 3; i++ {
		turnType := domain.TurnRegenerate
		if i == 0 {
			turnType = domain.TurnInitial
		}
		h.Append(turnType, fmt.Sprintf("request %d", i), domain.Output{Kind: domain.KindText, Text: fmt.Sprintf("greeting %d", i)})
	}
	if h.Len() != 3 {
		t.Fatalf("len = %d, want 3", h.Len())
	}
	for i := 0; i < 3; i++ {
		out, err := h.Turn(i)
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		if want := fmt.Sprintf("greeting %d", i); out.Text != want {
			t.Fatalf("turn %d text = %q, want %q", i, out.Text, want)
		}
	}
	entries := h.Entries()
	if entries[0].Type != domain.TurnInitial || entries[2].Type != domain.TurnRegenerate {
		t.Fatalf("unexpected turn types: %+v", entries)
	}
}

func TestHistoryTurnOutOfRange(t *testing.T) {
	h := New()
	h.Append(domain.TurnInitial, "req", domain.Output{Kind: domain.KindText, Text: "hi"})
	for _, index := range []int{-1, 1, 42} {
		if _, err := h.Turn(index); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("index %d: expected ErrIndexOutOfRange, got %v", index, err)
		}
	}
}

func TestHistoryTurnDoesNotMutate(t *testing.T) {
	h := New()
	h.Append(domain.TurnInitial, "req", domain.Output{Kind: domain.KindText, Text: "hi"})
	if _, err := h.Turn(0); err != nil {
		t.Fatalf("turn: %v", err)
	}
	if h.Len() != 1 {
		t.Fatalf("selecting a turn changed history length to %d", h.Len())
	}
}

func TestHistoryReset(t *testing.T) {
	h := New()
	h.Append(domain.TurnInitial, "req", domain.Output{Kind: domain.KindText, Text: "hi"})
	h.Reset()
	if h.Len() != 0 {
		t.Fatalf("len after reset = %d", h.Len())
	}
	if _, err := h.Turn(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange after reset, got %v", err)
	}
}

func TestHistoryEntriesReturnsCopy(t *testing.T) {
	h := New()
	h.Append(domain.TurnInitial, "req", domain.Output{Kind: domain.KindText, Text: "hi"})
	entries := h.Entries()
	entries[0].Request = "tampered"
	fresh := h.Entries()
	if fresh[0].Request != "req" {
		t.Fatal("Entries must return a copy")
	}
}
