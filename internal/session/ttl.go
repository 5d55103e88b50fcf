package session

import (
	"context"
	"log/slog"
	"time"
)

const ttlWorkerInterval = time.Minute

// CleanupCallback is called with the id of each session the TTL worker removes.
type CleanupCallback func(sessionID string)

// StartTTLWorker runs a background goroutine that periodically removes
// sessions idle for longer than ttl.
func StartTTLWorker(ctx context.Context, m *Manager, ttl time.Duration, onCleanup CleanupCallback) {
	startTTLWorker(ctx, m, ttl, ttlWorkerInterval, onCleanup)
}

func startTTLWorker(ctx context.Context, m *Manager, ttl, interval time.Duration, onCleanup CleanupCallback) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("TTL worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				cleanupExpiredSessions(m, ttl, onCleanup)
			case <-ctx.Done():
				slog.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func cleanupExpiredSessions(m *Manager, ttl time.Duration, onCleanup CleanupCallback) int {
	expired := m.Expired(ttl)
	if len(expired) == 0 {
		return 0
	}

	slog.Info("TTL worker found expired sessions", "count", len(expired))

	cleaned := 0
	for _, s := range expired {
		// A session mid-request is not idle.
		if !s.TryAcquire() {
			continue
		}
		if onCleanup != nil {
			onCleanup(s.ID)
		}
		if m.Delete(s.ID) {
			cleaned++
		}
		s.Release()
	}

	slog.Info("TTL worker cleanup completed", "cleaned", cleaned)
	return cleaned
}
