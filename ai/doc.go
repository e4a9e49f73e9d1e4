// Package ai defines the interfaces for AI services used by recallit:
// text embedding for similarity search and chat completion for
// retrieval-augmented answers.
//
// Implementations live in subpackages:
//   - ai/openai: OpenAI-compatible services via langchaingo
//   - ai/mock: deterministic test doubles
package ai
