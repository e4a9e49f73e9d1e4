// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/recallit/ai"
	"github.com/poiesic/recallit/core"
	"github.com/poiesic/recallit/retrieval"
)

// systemPromptPrefix and systemPromptSuffix bracket the retrieved transcript
// context in the instruction sent to the generator.
const (
	systemPromptPrefix = "你是一位專業的健康、醫療和飲食相關的諮詢師。用繁體中文回覆。可以參考以下背景資訊但不限於此來回答問題:\n\n"
	systemPromptSuffix = "\n除了以上資訊你可以再進行補充，回答不用過長，回答得有結構及完整就好。必要時可以跟使用者詢問更多資訊來提供給你。"
)

// apologyPrefix starts the assistant turn recorded when generation fails.
const apologyPrefix = "抱歉,發生了一個錯誤: "

// Reply is the outcome of one user turn.
type Reply struct {
	// Text is the recorded assistant answer, or the inline apology if
	// generation failed.
	Text string

	// Sources are the retrieved chunks that informed the answer, most
	// similar first. Empty when retrieval found nothing or failed.
	Sources []core.RetrievedChunk

	// GenerationErr is the error the apology stands in for, nil on success.
	GenerationErr error
}

// Session runs a conversation against the transcript index.
// Safe for sequential use; concurrent Respond calls on one session would
// interleave turns and are not supported.
type Session struct {
	conv      *Conversation
	engine    *retrieval.Engine
	generator ai.Generator
	window    int
	logger    *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithWindow sets how many trailing turns are sent to the generator.
func WithWindow(n int) SessionOption {
	return func(s *Session) { s.window = n }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession creates a session with a fresh greeted conversation.
func NewSession(engine *retrieval.Engine, generator ai.Generator, opts ...SessionOption) *Session {
	s := &Session{
		conv:      NewConversation(),
		engine:    engine,
		generator: generator,
		window:    DefaultWindow,
		logger:    slog.Default().With("component", "chat"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Conversation exposes the session history.
func (s *Session) Conversation() *Conversation {
	return s.conv
}

// Respond handles one user turn: record it, retrieve context for the
// cumulative user query, and stream the generated answer through onDelta
// (which may be nil). The assistant turn is always recorded, even when
// generation fails; in that case Reply.Text is the inline apology and
// Reply.GenerationErr carries the cause.
//
// Retrieval failures never block the turn: the answer is generated without
// transcript context and the failure is logged.
func (s *Session) Respond(ctx context.Context, input string, onDelta func(delta string) error) (Reply, error) {
	if strings.TrimSpace(input) == "" {
		return Reply{}, ErrEmptyInput
	}

	if err := s.conv.Append(core.RoleUser, input); err != nil {
		return Reply{}, err
	}

	var reply Reply
	query := retrieval.CumulativeQuery(s.conv.Messages())
	sources, err := s.engine.Retrieve(ctx, query)
	if err != nil {
		s.logger.Warn("retrieval failed, answering without transcript context", "error", err)
	} else {
		reply.Sources = sources
	}

	// Only the best chunk goes into the prompt; the rest are surfaced as
	// source references.
	contextText := ""
	if len(reply.Sources) > 0 {
		contextText = reply.Sources[0].Text
	}

	messages := make([]core.Message, 0, s.window+1)
	messages = append(messages, core.Message{
		Role:    core.RoleSystem,
		Content: systemPromptPrefix + contextText + systemPromptSuffix,
	})
	messages = append(messages, s.conv.Window(s.window)...)

	text, err := s.generator.Generate(ctx, messages, onDelta)
	if err != nil {
		s.logger.Error("generation failed", "error", err)
		text = apologyPrefix + err.Error()
		reply.GenerationErr = err
		if onDelta != nil {
			// Stream the apology like any other answer. The delta
			// callback has already seen whatever arrived before the
			// failure; its error no longer matters here.
			_ = onDelta(text)
		}
	}

	reply.Text = text
	if err := s.conv.Append(core.RoleAssistant, text); err != nil {
		return reply, err
	}
	return reply, nil
}

// Reset clears the conversation back to the greeting.
func (s *Session) Reset() {
	s.conv.Reset()
}
