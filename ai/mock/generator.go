package mock

import (
	"context"
	"strings"

	"github.com/poiesic/recallit/core"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via a function field.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, the generator echoes the last user turn.
	GenerateFunc func(ctx context.Context, messages []core.Message, onDelta func(string) error) (string, error)

	// Response, if non-empty, is returned verbatim by the default behavior.
	Response string

	callCount int
}

// NewMockGenerator creates a mock generator with default echo behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate returns a canned or echoed response, streaming it word by word
// through onDelta to exercise streaming consumers.
func (m *MockGenerator) Generate(ctx context.Context, messages []core.Message, onDelta func(string) error) (string, error) {
	m.callCount++

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, messages, onDelta)
	}

	response := m.Response
	if response == "" {
		response = "echo: " + lastUserContent(messages)
	}

	if onDelta != nil {
		for _, word := range strings.SplitAfter(response, " ") {
			if err := onDelta(word); err != nil {
				return "", err
			}
		}
	}
	return response, nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockGenerator) Reset() {
	m.callCount = 0
	m.GenerateFunc = nil
	m.Response = ""
}

func lastUserContent(messages []core.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == core.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
