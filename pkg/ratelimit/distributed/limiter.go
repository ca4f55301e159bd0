package distributed

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	gkerrors "github.com/vnykmshr/gatekeep/pkg/common/errors"
	"github.com/vnykmshr/gatekeep/pkg/common/validation"
	"github.com/vnykmshr/gatekeep/pkg/metrics"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/clock"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/store"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/window"
)

const module = "distributed"

const (
	// DefaultNamespace prefixes every counter key.
	DefaultNamespace = "rl"

	// DefaultTimeout bounds each store call.
	DefaultTimeout = 100 * time.Millisecond

	// DefaultName labels the limiter in metrics.
	DefaultName = "distributed"
)

// Config holds configuration for a distributed Limiter.
type Config struct {
	// Store performs the atomic check-and-increment. Required.
	Store store.Store

	// Namespace prefixes counter keys. Defaults to DefaultNamespace.
	Namespace string

	// Limit is the estimated number of requests admitted per Window.
	Limit int

	// Window is the sliding window length.
	Window time.Duration

	// Timeout bounds each store call. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Clock provides wall-clock time for window IDs. If nil,
	// clock.SystemClock is used.
	Clock clock.Clock

	// Logger receives fail-open warnings. Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics receives fail-open counts. If nil, metrics.DefaultRegistry
	// is used.
	Metrics *metrics.Registry

	// Name labels this limiter in metrics. Defaults to DefaultName.
	Name string

	// OnStoreError, if set, is called with every store failure after the
	// request has been admitted.
	OnStoreError func(err error)
}

// DefaultConfig returns a Config with every optional field at its default.
func DefaultConfig() Config {
	return Config{
		Namespace: DefaultNamespace,
		Timeout:   DefaultTimeout,
		Name:      DefaultName,
	}
}

// Limiter is a sliding window counter over a shared store. It holds no
// mutable state of its own and is safe for concurrent use.
type Limiter struct {
	store        store.Store
	namespace    string
	limit        int
	window       time.Duration
	timeout      time.Duration
	clock        clock.Clock
	logger       *zap.Logger
	metrics      *metrics.Registry
	name         string
	onStoreError func(error)
}

var _ ratelimit.Limiter = (*Limiter)(nil)

// New creates a distributed limiter from config.
func New(config Config) (*Limiter, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	config = applyConfigDefaults(config)

	return &Limiter{
		store:        config.Store,
		namespace:    config.Namespace,
		limit:        config.Limit,
		window:       config.Window,
		timeout:      config.Timeout,
		clock:        config.Clock,
		logger:       config.Logger.Named(module),
		metrics:      config.Metrics,
		name:         config.Name,
		onStoreError: config.OnStoreError,
	}, nil
}

// validateConfig validates the limiter configuration.
func validateConfig(config Config) error {
	if config.Store == nil {
		return validation.ValidateNotNil(module, "store", nil)
	}
	if err := validation.ValidatePositive(module, "limit", config.Limit); err != nil {
		return err
	}
	if err := validation.ValidatePositiveDuration(module, "window", config.Window); err != nil {
		return err
	}
	if config.Timeout < 0 {
		return validation.ValidatePositiveDuration(module, "timeout", config.Timeout)
	}
	return nil
}

// applyConfigDefaults sets default values for unspecified config fields.
func applyConfigDefaults(config Config) Config {
	if config.Namespace == "" {
		config.Namespace = DefaultNamespace
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Name == "" {
		config.Name = DefaultName
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	config.Clock = clock.OrSystem(config.Clock)
	config.Metrics = metrics.OrDefault(config.Metrics)
	return config
}

// Allow reports whether subject may make a request to service now under the
// configured limit.
func (l *Limiter) Allow(ctx context.Context, service, subject string) bool {
	return l.AllowLimit(ctx, service, subject, l.limit, l.window).Allowed
}

// Admit implements ratelimit.Limiter using req.Service and req.Subject.
func (l *Limiter) Admit(ctx context.Context, req ratelimit.Request) ratelimit.Decision {
	return l.AllowLimit(ctx, req.Service, req.Subject, l.limit, l.window)
}

// AllowLimit decides under a limit and window supplied by the caller instead
// of the configured ones. A rejection carries a hint of half the window. A
// non-positive window cannot be evaluated and is admitted.
func (l *Limiter) AllowLimit(ctx context.Context, service, subject string, limit int, size time.Duration) ratelimit.Decision {
	if size <= 0 {
		l.logger.Error("invalid window, admitting",
			zap.String("service", service),
			zap.Duration("window", size),
		)
		return ratelimit.Allow
	}

	now := l.clock.Now()
	id := window.ID(now, size)
	currentKey := Key(l.namespace, service, subject, id)
	previousKey := Key(l.namespace, service, subject, id-1)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ok, err := l.store.CheckAndIncrement(ctx, currentKey, previousKey, limit, window.PreviousWeight(now, size), 2*size)
	if err != nil {
		l.failOpen(err, service, subject, currentKey)
		return ratelimit.Allow
	}
	if !ok {
		return ratelimit.Deny(size / 2)
	}
	return ratelimit.Allow
}

// Limit returns the configured limit.
func (l *Limiter) Limit() int {
	return l.limit
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Timeout returns the bound applied to each store call.
func (l *Limiter) Timeout() time.Duration {
	return l.timeout
}

func (l *Limiter) failOpen(err error, service, subject, key string) {
	l.logger.Warn("store unavailable, admitting request",
		zap.String("service", service),
		zap.String("subject", subject),
		zap.String("key", key),
		zap.Bool("temporary", gkerrors.IsTemporary(err)),
		zap.Error(err),
	)
	l.metrics.RateLimitFailOpen.WithLabelValues(l.name).Inc()

	if l.onStoreError != nil {
		l.onStoreError(err)
	}
}

// Key builds the counter key for one window.
func Key(namespace, service, subject string, windowID int64) string {
	var b strings.Builder
	b.Grow(len(namespace) + len(service) + len(subject) + 24)
	b.WriteString(namespace)
	b.WriteByte(':')
	b.WriteString(service)
	b.WriteByte(':')
	b.WriteString(subject)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(windowID, 10))
	return b.String()
}
