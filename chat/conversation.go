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
	"sync"

	"github.com/poiesic/recallit/core"
)

// Greeting is the assistant turn every conversation starts with.
const Greeting = "您好!我是您的 AI 諮詢師。有什麼我可以幫您的嗎?"

// DefaultWindow is how many trailing turns are sent to the generator.
const DefaultWindow = 5

// Conversation is an ordered, append-only history of chat turns.
// Safe for concurrent use.
type Conversation struct {
	mu       sync.Mutex
	messages []core.Message
}

// NewConversation creates a conversation seeded with the greeting.
func NewConversation() *Conversation {
	c := &Conversation{}
	c.Reset()
	return c
}

// Append records a turn at the end of the history.
func (c *Conversation) Append(role core.Role, content string) error {
	if err := core.ValidateRole(role); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, core.Message{Role: role, Content: content})
	return nil
}

// Messages returns a copy of the full history, oldest first.
func (c *Conversation) Messages() []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Window returns a copy of the last n turns, oldest first. The greeting
// counts as a turn. If the history is shorter than n, the whole history is
// returned.
func (c *Conversation) Window(n int) []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 {
		return nil
	}
	start := len(c.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]core.Message, len(c.messages)-start)
	copy(out, c.messages[start:])
	return out
}

// Len returns the number of recorded turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Reset discards the history and re-seeds the greeting.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = []core.Message{{Role: core.RoleAssistant, Content: Greeting}}
}
