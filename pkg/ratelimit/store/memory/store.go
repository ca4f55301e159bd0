// Package memory provides an in-process store.Store.
//
// Counters live in a mutex-guarded map with a per-key expiry read from an
// injectable clock. Expired keys read as missing; a cron job started by Start
// removes them periodically so the map does not grow without bound.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vnykmshr/gatekeep/pkg/common/validation"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/clock"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/store"
)

const module = "memory"

// DefaultSweepInterval is how often Start purges expired keys.
const DefaultSweepInterval = time.Minute

// Config holds configuration options for a Store.
type Config struct {
	// Clock drives key expiry. If nil, clock.SystemClock is used.
	Clock clock.Clock

	// SweepInterval is the period of the expiry sweep. Defaults to
	// DefaultSweepInterval.
	SweepInterval time.Duration

	// Logger receives sweep events. Defaults to a no-op logger.
	Logger *zap.Logger
}

type entry struct {
	count   int64
	expires time.Time
}

// Store is an in-memory store.Store. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	clock   clock.Clock
	logger  *zap.Logger

	interval time.Duration
	cronMu   sync.Mutex
	cron     *cron.Cron
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store. Call Start to run the expiry sweep.
func New(config Config) (*Store, error) {
	if config.SweepInterval == 0 {
		config.SweepInterval = DefaultSweepInterval
	}
	if err := validation.ValidatePositiveDuration(module, "sweep_interval", config.SweepInterval); err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Store{
		entries:  make(map[string]entry),
		clock:    clock.OrSystem(config.Clock),
		logger:   config.Logger.Named(module),
		interval: config.SweepInterval,
	}, nil
}

// CheckAndIncrement implements store.Store.
func (s *Store) CheckAndIncrement(ctx context.Context, currentKey, previousKey string, limit int, weight float64, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	current := s.get(currentKey, now)
	previous := s.get(previousKey, now)

	if float64(previous)*weight+float64(current) >= float64(limit) {
		return false, nil
	}

	s.entries[currentKey] = entry{count: current + 1, expires: now.Add(ttl)}
	return true, nil
}

// Get returns the live counter at key, or 0 if it is missing or expired.
func (s *Store) Get(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(key, s.clock.Now())
}

// Len returns the number of keys held, including expired keys not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Sweep deletes expired keys and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Start begins the periodic expiry sweep. It is a no-op if already started.
func (s *Store) Start() error {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc("@every "+s.interval.String(), func() {
		if n := s.Sweep(); n > 0 {
			s.logger.Debug("swept expired keys", zap.Int("removed", n))
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	s.cron = c
	return nil
}

// Stop halts the sweep and waits for a running sweep to finish. It is safe
// to call more than once.
func (s *Store) Stop() {
	s.cronMu.Lock()
	c := s.cron
	s.cron = nil
	s.cronMu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *Store) get(key string, now time.Time) int64 {
	e, ok := s.entries[key]
	if !ok || !now.Before(e.expires) {
		return 0
	}
	return e.count
}
