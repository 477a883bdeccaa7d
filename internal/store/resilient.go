package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/abhisek/examprep/internal/logger"
	"github.com/abhisek/examprep/internal/model"
)

// ResilientConfig tunes the protection around repository calls.
type ResilientConfig struct {
	// MaxAttempts per call, including the first (default 3).
	MaxAttempts int
	// InitialDelay before the first retry (default 50ms).
	InitialDelay time.Duration
	// MaxDelay caps retry backoff (default 1s).
	MaxDelay time.Duration
	// TripAfter consecutive failures opens the breaker (default 5).
	TripAfter int
	// OpenFor is how long the breaker stays open (default 30s).
	OpenFor time.Duration
	// MaxConcurrent calls allowed through at once (default 16).
	MaxConcurrent int

	Logger *logger.Logger
}

// DefaultResilientConfig returns defaults suited to a local SQLite file.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		MaxAttempts:   3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		TripAfter:     5,
		OpenFor:       30 * time.Second,
		MaxConcurrent: 16,
	}
}

// ResilientRepository wraps a Repository with retry, a circuit breaker and a
// concurrency limit. Any failure that makes it through is wrapped with
// ErrUnavailable. ErrNotFound passes through untouched and does not count
// against the breaker.
type ResilientRepository struct {
	inner    Repository
	breaker  circuitbreaker.CircuitBreaker[any]
	retrier  retry.Retry[any]
	bulkhead bulkhead.Bulkhead[any]
	log      *logger.Logger
}

var _ Repository = (*ResilientRepository)(nil)

// NewResilientRepository wraps inner. Zero config fields take defaults.
func NewResilientRepository(inner Repository, cfg ResilientConfig) *ResilientRepository {
	def := DefaultResilientConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = def.TripAfter
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = def.OpenFor
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := &ResilientRepository{inner: inner, log: log}
	r.breaker = circuitbreaker.New[any](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= cfg.TripAfter
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			log.Warn("store circuit breaker state change", "from", from.String(), "to", to.String())
		},
	})
	r.retrier = retry.New[any](retry.Config{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      cfg.MaxDelay,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   isRetryable,
	})
	r.bulkhead = bulkhead.New[any](bulkhead.Config{
		MaxConcurrent: cfg.MaxConcurrent,
		MaxQueue:      cfg.MaxConcurrent * 4,
		QueueTimeout:  5 * time.Second,
	})
	return r
}

func isRetryable(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// do runs fn through bulkhead, retry and breaker. Errors the caller should see
// as-is (ErrNotFound) are smuggled past the breaker so they don't trip it.
func (r *ResilientRepository) do(ctx context.Context, op string, fn func(ctx context.Context) (any, error)) (any, error) {
	var passthrough error
	guarded := func(ctx context.Context) (any, error) {
		v, err := fn(ctx)
		if errors.Is(err, ErrNotFound) {
			passthrough = err
			return v, nil
		}
		return v, err
	}

	v, err := r.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return r.retrier.Do(ctx, func(ctx context.Context) (any, error) {
			return r.bulkhead.Execute(ctx, guarded)
		})
	})
	if err != nil {
		r.log.Error("store call failed", "op", op, "error", err)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	if passthrough != nil {
		return nil, passthrough
	}
	return v, nil
}

func (r *ResilientRepository) LoadHistory(ctx context.Context, userID string) ([]model.AnswerEvent, error) {
	v, err := r.do(ctx, "load history", func(ctx context.Context) (any, error) {
		return r.inner.LoadHistory(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	events, _ := v.([]model.AnswerEvent)
	return events, nil
}

func (r *ResilientRepository) AppendEvent(ctx context.Context, ev model.AnswerEvent) error {
	_, err := r.do(ctx, "append event", func(ctx context.Context) (any, error) {
		return nil, r.inner.AppendEvent(ctx, ev)
	})
	return err
}

func (r *ResilientRepository) RecentCorrectQuestionIDs(ctx context.Context, userID string, since time.Time) ([]string, error) {
	v, err := r.do(ctx, "recent correct", func(ctx context.Context) (any, error) {
		return r.inner.RecentCorrectQuestionIDs(ctx, userID, since)
	})
	if err != nil {
		return nil, err
	}
	ids, _ := v.([]string)
	return ids, nil
}

func (r *ResilientRepository) CountAnswers(ctx context.Context, userID string) (int, error) {
	v, err := r.do(ctx, "count answers", func(ctx context.Context) (any, error) {
		return r.inner.CountAnswers(ctx, userID)
	})
	if err != nil {
		return 0, err
	}
	n, _ := v.(int)
	return n, nil
}

func (r *ResilientRepository) LoadProfile(ctx context.Context, userID string) (*model.LearningProfile, error) {
	v, err := r.do(ctx, "load profile", func(ctx context.Context) (any, error) {
		return r.inner.LoadProfile(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	p, _ := v.(*model.LearningProfile)
	return p, nil
}

func (r *ResilientRepository) SaveProfile(ctx context.Context, p *model.LearningProfile) error {
	_, err := r.do(ctx, "save profile", func(ctx context.Context) (any, error) {
		return nil, r.inner.SaveProfile(ctx, p)
	})
	return err
}

func (r *ResilientRepository) LoadDomainWeights(ctx context.Context) (map[string]float64, error) {
	v, err := r.do(ctx, "load domain weights", func(ctx context.Context) (any, error) {
		return r.inner.LoadDomainWeights(ctx)
	})
	if err != nil {
		return nil, err
	}
	w, _ := v.(map[string]float64)
	return w, nil
}

func (r *ResilientRepository) LoadDomains(ctx context.Context) ([]model.Domain, error) {
	v, err := r.do(ctx, "load domains", func(ctx context.Context) (any, error) {
		return r.inner.LoadDomains(ctx)
	})
	if err != nil {
		return nil, err
	}
	d, _ := v.([]model.Domain)
	return d, nil
}

func (r *ResilientRepository) Candidates(ctx context.Context, filter model.QuestionFilter) ([]model.Question, error) {
	v, err := r.do(ctx, "load candidates", func(ctx context.Context) (any, error) {
		return r.inner.Candidates(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	q, _ := v.([]model.Question)
	return q, nil
}

func (r *ResilientRepository) AppendInsights(ctx context.Context, insights []model.Insight) error {
	_, err := r.do(ctx, "append insights", func(ctx context.Context) (any, error) {
		return nil, r.inner.AppendInsights(ctx, insights)
	})
	return err
}

func (r *ResilientRepository) RecentInsights(ctx context.Context, userID string, limit int) ([]model.Insight, error) {
	v, err := r.do(ctx, "recent insights", func(ctx context.Context) (any, error) {
		return r.inner.RecentInsights(ctx, userID, limit)
	})
	if err != nil {
		return nil, err
	}
	out, _ := v.([]model.Insight)
	return out, nil
}

func (r *ResilientRepository) MarkInsightRead(ctx context.Context, userID, insightID string) error {
	_, err := r.do(ctx, "mark insight read", func(ctx context.Context) (any, error) {
		return nil, r.inner.MarkInsightRead(ctx, userID, insightID)
	})
	return err
}

func (r *ResilientRepository) PruneInsights(ctx context.Context, userID string, keep int) error {
	_, err := r.do(ctx, "prune insights", func(ctx context.Context) (any, error) {
		return nil, r.inner.PruneInsights(ctx, userID, keep)
	})
	return err
}
