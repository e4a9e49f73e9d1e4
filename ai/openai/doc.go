// Package openai implements the ai interfaces against OpenAI-compatible
// HTTP APIs (OpenAI, DeepInfra, Ollama, vLLM) via langchaingo.
package openai
