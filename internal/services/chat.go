package services

import (
	"context"
	"errors"
	"fmt"
)

// ChatModel is the model every chat message is sent to.
const ChatModel = "gemini-2.5-flash"

var (
	ErrEmptyMessage = errors.New("missing 'message' in request body")
	ErrUpstream     = errors.New("generative model request failed")
)

// Generator produces a text completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// ChatRelay forwards one message per call. It keeps no conversation state.
type ChatRelay struct {
	gen Generator
}

// NewChatRelay accepts a nil generator; every Relay then fails with ErrUpstream.
func NewChatRelay(gen Generator) *ChatRelay {
	return &ChatRelay{gen: gen}
}

func (r *ChatRelay) Relay(ctx context.Context, message string) (string, error) {
	if message == "" {
		return "", ErrEmptyMessage
	}
	if r.gen == nil {
		return "", fmt.Errorf("%w: generative model is not configured", ErrUpstream)
	}

	reply, err := r.gen.Generate(ctx, ChatModel, message)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return reply, nil
}
