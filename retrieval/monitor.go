package retrieval

import (
	"log/slog"
	"time"
)

// Monitor observes retrieval operations.
// Implementations must be safe for concurrent use.
type Monitor interface {
	// RetrievalStarted is called before the query is embedded.
	RetrievalStarted(query string, k int)

	// RetrievalCompleted is called after matches are collected.
	RetrievalCompleted(query string, matches int, elapsed time.Duration)
}

// NoopMonitor is a Monitor that does nothing.
type NoopMonitor struct{}

func (NoopMonitor) RetrievalStarted(string, int)                  {}
func (NoopMonitor) RetrievalCompleted(string, int, time.Duration) {}

// LoggingMonitor logs retrieval activity through slog.
type LoggingMonitor struct {
	Logger *slog.Logger
}

// NewLoggingMonitor creates a monitor that logs at debug level.
func NewLoggingMonitor(logger *slog.Logger) *LoggingMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingMonitor{Logger: logger.With("component", "retrieval")}
}

func (m *LoggingMonitor) RetrievalStarted(query string, k int) {
	m.Logger.Debug("retrieval started", "query_length", len(query), "k", k)
}

func (m *LoggingMonitor) RetrievalCompleted(query string, matches int, elapsed time.Duration) {
	m.Logger.Debug("retrieval completed", "matches", matches, "elapsed", elapsed)
}
