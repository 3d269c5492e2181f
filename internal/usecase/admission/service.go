// Package admission enforces per-client request limits over two sliding
// windows, one minute and one hour.
package admission

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clariq-health/docqa/internal/domain"
	"github.com/clariq-health/docqa/internal/metrics"
)

// Config holds the admission limits.
type Config struct {
	PerMinute int
	PerHour   int
}

type entry struct {
	at time.Time
	n  int
}

// Service is a per-process admission controller. State lives in memory, so
// limits apply per instance, not across a fleet.
type Service struct {
	mu      sync.Mutex
	clients map[string][]entry

	perMinute int
	perHour   int
	clock     func() time.Time
	logger    *zap.Logger
}

// New creates an admission controller.
func New(cfg Config, logger *zap.Logger) *Service {
	return &Service{
		clients:   make(map[string][]entry),
		perMinute: cfg.PerMinute,
		perHour:   cfg.PerHour,
		clock:     time.Now,
		logger:    logger,
	}
}

// NewWithClock creates an admission controller with an injected clock.
func NewWithClock(cfg Config, clock func() time.Time, logger *zap.Logger) *Service {
	s := New(cfg, logger)
	s.clock = clock
	return s
}

// Admit records one request for the client, or rejects it when a window is
// exhausted. The minute window is checked first. Check and record are a
// single critical section so concurrent callers cannot overshoot a limit.
func (s *Service) Admit(clientID string) error {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := prune(s.clients[clientID], now.Add(-time.Hour))

	var minuteSum, hourSum int
	minuteCutoff := now.Add(-time.Minute)
	for _, e := range entries {
		hourSum += e.n
		if e.at.After(minuteCutoff) {
			minuteSum += e.n
		}
	}

	if s.perMinute > 0 && minuteSum >= s.perMinute {
		s.clients[clientID] = entries
		metrics.AdmissionDecisionsTotal.WithLabelValues("rejected_minute").Inc()
		s.logger.Warn("request rejected",
			zap.String("client_id", clientID),
			zap.String("window", "minute"),
			zap.Int("limit", s.perMinute),
		)
		return domain.NewRateLimited("minute", s.perMinute, time.Minute)
	}
	if s.perHour > 0 && hourSum >= s.perHour {
		s.clients[clientID] = entries
		metrics.AdmissionDecisionsTotal.WithLabelValues("rejected_hour").Inc()
		s.logger.Warn("request rejected",
			zap.String("client_id", clientID),
			zap.String("window", "hour"),
			zap.Int("limit", s.perHour),
		)
		return domain.NewRateLimited("hour", s.perHour, time.Hour)
	}

	s.clients[clientID] = append(entries, entry{at: now, n: 1})
	metrics.AdmissionDecisionsTotal.WithLabelValues("allowed").Inc()
	return nil
}

// prune drops entries at or before the cutoff. Entries are appended in time
// order, so the first survivor ends the scan.
func prune(entries []entry, cutoff time.Time) []entry {
	for i, e := range entries {
		if e.at.After(cutoff) {
			return entries[i:]
		}
	}
	return nil
}
