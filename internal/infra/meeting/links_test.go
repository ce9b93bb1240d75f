package meeting

import (
	"context"
	"errors"
	"testing"
)

func TestLinkGenerator(t *testing.T) {
	g := LinkGenerator{BaseURL: "https://meet.example.com/", NewID: func() string { return "room-1" }}
	ref, err := g.Reference(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "https://meet.example.com/room-1" {
		t.Fatalf("unexpected reference %q", ref)
	}
	if _, err := (LinkGenerator{}).Reference(context.Background(), nil); !errors.Is(err, ErrBaseURLMissing) {
		t.Fatalf("expected ErrBaseURLMissing, got %v", err)
	}
}
