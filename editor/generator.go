package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyPrompt       = errors.New("prompt is empty")
	ErrGenerateInFlight  = errors.New("generation already in progress")
	ErrGenerationFailure = errors.New("failed to generate preview")
)

// Generator turns an AI prompt into preview text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// MockGenerator simulates a generation call with a fixed delay.
type MockGenerator struct {
	Delay time.Duration
}

func (g MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	if g.Delay > 0 {
		timer := time.NewTimer(g.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Sprintf("This is a preview of the AI-generated content based on your prompt:\n\n%s\n\n"+
		"The actual content will be generated when the email is sent.", prompt), nil
}
