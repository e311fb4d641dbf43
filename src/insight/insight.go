// Package insight simulates a remote text generation service. There is no
// real service behind it, responses are canned and delivery is delayed to
// mimic network latency.
package insight

import (
	"context"
	"strings"
	"time"
)

// DefaultDelay approximates the round trip time of the service this package
// stands in for.
const DefaultDelay = 1200 * time.Millisecond

const (
	deepDiveResponse = "This track rewards a closer listen. The arrangement " +
		"layers a steady pulse under a melody that keeps circling back to its " +
		"opening phrase, giving the piece a hypnotic, looping quality. Listen " +
		"for the subtle shift in texture about two thirds of the way through."
	quickTakeResponse = "An easygoing track with a catchy hook and a steady " +
		"groove. Good company for whatever you are doing right now."
)

// Client answers prompts with canned text after a fixed artificial delay.
type Client struct {
	Delay time.Duration
}

func NewClient() *Client {
	return &Client{Delay: DefaultDelay}
}

// Generate returns a canned response for the prompt. Prompts that ask for a
// deep dive get the long form answer, everything else gets the short one.
func (cl *Client) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case <-time.After(cl.Delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if strings.Contains(strings.ToLower(prompt), "deep dive") {
		return deepDiveResponse, nil
	}
	return quickTakeResponse, nil
}
