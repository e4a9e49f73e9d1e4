// Package mock provides deterministic test doubles for the ai interfaces.
//
// The mock embedder produces the same unit vector for the same text, which
// makes similarity-based tests reproducible without a running model server.
package mock
