// Package chat drives a retrieval-augmented consultation dialogue.
//
// A Session owns a Conversation and, for each user turn, retrieves the
// transcript chunks most relevant to everything the user has asked so far,
// folds the best one into the system prompt, and streams the generated
// answer. Retrieval failures degrade to an answer without transcript
// context; generation failures are recorded as an inline apology so the
// history is never lost.
package chat
