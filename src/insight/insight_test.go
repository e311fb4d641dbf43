package insight

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	cl := &Client{Delay: time.Millisecond}

	text, err := cl.Generate(context.Background(), "Give me a deep dive on this track.")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "closer listen") {
		t.Fatalf("expected the long form response, got %q", text)
	}

	text, err = cl.Generate(context.Background(), "What is this song about?")
	if err != nil {
		t.Fatal(err)
	}
	if text != quickTakeResponse {
		t.Fatalf("expected the short response, got %q", text)
	}
}

func TestGenerateCanceled(t *testing.T) {
	cl := NewClient()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cl.Generate(ctx, "anything"); err == nil {
		t.Fatal("expected an error from a canceled context")
	}
}
