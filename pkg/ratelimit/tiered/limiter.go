package tiered

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/vnykmshr/gatekeep/pkg/common/validation"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/distributed"
)

// Config holds configuration for a tiered Limiter.
type Config struct {
	// Distributed performs the counting. Required.
	Distributed *distributed.Limiter

	// Resolver maps subjects to tiers. Defaults to a StaticResolver that
	// puts everyone in DefaultTier.
	Resolver TierResolver

	// Rules is the initial rule table. Defaults to DefaultRules().
	Rules *Rules

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Result is a decision together with the tier and rule that produced it.
type Result struct {
	ratelimit.Decision
	Tier string
	Rule Rule
}

// Limiter enforces per-service, per-tier limits. It is safe for concurrent
// use, including concurrent SetRules.
type Limiter struct {
	dist     *distributed.Limiter
	resolver TierResolver
	rules    atomic.Pointer[Rules]
	logger   *zap.Logger
}

var _ ratelimit.Limiter = (*Limiter)(nil)

// New creates a tiered Limiter.
func New(config Config) (*Limiter, error) {
	if config.Distributed == nil {
		return nil, validation.ValidateNotNil(module, "distributed", nil)
	}
	if config.Resolver == nil {
		config.Resolver = StaticResolver{}
	}
	if config.Rules == nil {
		config.Rules = DefaultRules()
	}
	if err := config.Rules.Validate(); err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	l := &Limiter{
		dist:     config.Distributed,
		resolver: config.Resolver,
		logger:   config.Logger.Named(module),
	}
	l.rules.Store(config.Rules)
	return l, nil
}

// Check resolves the subject's tier and rule for service and counts the
// request against it. The tier lookup is bounded by the distributed
// limiter's timeout; a lookup that runs out falls back to DefaultTier.
func (l *Limiter) Check(ctx context.Context, service, subject string) Result {
	lookupCtx, cancel := context.WithTimeout(ctx, l.dist.Timeout())
	tier, err := l.resolver.Tier(lookupCtx, subject)
	cancel()
	if err != nil {
		l.logger.Debug("using fallback tier", zap.String("subject", subject), zap.String("tier", tier), zap.Error(err))
	}
	if tier == "" {
		tier = DefaultTier
	}

	rule := l.rules.Load().Lookup(service, tier)
	return Result{
		Decision: l.dist.AllowLimit(ctx, service, subject, rule.Limit, rule.Window),
		Tier:     tier,
		Rule:     rule,
	}
}

// Admit implements ratelimit.Limiter using req.Service and req.Subject.
func (l *Limiter) Admit(ctx context.Context, req ratelimit.Request) ratelimit.Decision {
	return l.Check(ctx, req.Service, req.Subject).Decision
}

// Rules returns the rule table in effect.
func (l *Limiter) Rules() *Rules {
	return l.rules.Load()
}

// SetRules validates rules and swaps them in atomically.
func (l *Limiter) SetRules(rules *Rules) error {
	if rules == nil {
		return validation.ValidateNotNil(module, "rules", nil)
	}
	if err := rules.Validate(); err != nil {
		return err
	}
	l.rules.Store(rules)
	return nil
}
