package eodhd

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/ternarybob/arbor"
)

// DefaultMaxRetries is the default number of additional attempts after the first.
const DefaultMaxRetries = 3

// RetryState is a state of the retry state machine.
type RetryState int

const (
	StateAttempting RetryState = iota
	StateWaiting
	StateSucceeded
	StateFailed
)

func (s RetryState) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateWaiting:
		return "waiting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Transition records entry into a state.
// Attempt is the 1-indexed attempt the state belongs to; Until is set for StateWaiting.
type Transition struct {
	State   RetryState
	Attempt int
	Until   time.Time
	Delay   time.Duration
	Err     *APIError
}

// RetryPolicy configures retry behaviour.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// MaxJitter adds a random delay in [0, MaxJitter) to each wait. Zero disables jitter.
	MaxJitter time.Duration
}

// DefaultRetryPolicy returns the default policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultRateLimitDelay,
	}
}

// Delay returns the wait before the given 1-indexed attempt (attempt >= 2):
// BaseDelay * 2^(attempt-2).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	d := p.BaseDelay << (attempt - 2)
	if p.MaxJitter > 0 {
		d += time.Duration(rand.Int64N(int64(p.MaxJitter)))
	}
	return d
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// TimerSleeper is the default Sleeper.
func TimerSleeper(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AttemptFunc performs one executor call plus classification.
type AttemptFunc func(ctx context.Context, attempt int) Classification

// Retrier drives attempts through the retry state machine.
type Retrier struct {
	policy  RetryPolicy
	sleep   Sleeper
	now     func() time.Time
	logger  arbor.ILogger
	observe func(Transition)
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithSleeper replaces the delay primitive.
func WithSleeper(sleep Sleeper) RetrierOption {
	return func(r *Retrier) {
		r.sleep = sleep
	}
}

// WithTransitionObserver registers a callback invoked on every state change.
func WithTransitionObserver(fn func(Transition)) RetrierOption {
	return func(r *Retrier) {
		r.observe = fn
	}
}

// WithRetryLogger sets a logger.
func WithRetryLogger(logger arbor.ILogger) RetrierOption {
	return func(r *Retrier) {
		r.logger = logger
	}
}

// NewRetrier creates a retrier for the policy.
func NewRetrier(policy RetryPolicy, opts ...RetrierOption) *Retrier {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	r := &Retrier{
		policy: policy,
		sleep:  TimerSleeper,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn until it yields success or empty, a fatal error, or retries are exhausted.
// The returned classification is OutcomeSuccess or OutcomeEmpty when err is nil.
func (r *Retrier) Do(ctx context.Context, fn AttemptFunc) (Classification, error) {
	state := StateAttempting
	attempt := 1
	var last Classification
	var lastErr *APIError

	for {
		switch state {
		case StateAttempting:
			r.enter(Transition{State: StateAttempting, Attempt: attempt})
			last = fn(ctx, attempt)

			switch last.Outcome {
			case OutcomeSuccess, OutcomeEmpty:
				state = StateSucceeded
			case OutcomeFatal:
				lastErr = last.Err
				state = StateFailed
			default:
				lastErr = last.Err
				if lastErr == nil {
					lastErr = newError(KindNetworkError, 0, "attempt failed without a response", "")
				}
				if attempt > r.policy.MaxRetries {
					state = StateFailed
				} else {
					state = StateWaiting
				}
			}

		case StateWaiting:
			delay := r.policy.Delay(attempt + 1)
			r.enter(Transition{State: StateWaiting, Attempt: attempt, Until: r.now().Add(delay), Delay: delay, Err: lastErr})
			if r.logger != nil {
				r.logger.Debug().
					Int("attempt", attempt).
					Str("kind", string(lastErr.Kind)).
					Str("delay", delay.String()).
					Msg("EODHD request failed, retrying")
			}
			if err := r.sleep(ctx, delay); err != nil {
				lastErr = cancelled(lastErr, err)
				state = StateFailed
				continue
			}
			attempt++
			state = StateAttempting

		case StateSucceeded:
			r.enter(Transition{State: StateSucceeded, Attempt: attempt})
			return last, nil

		case StateFailed:
			r.enter(Transition{State: StateFailed, Attempt: attempt, Err: lastErr})
			return Classification{Outcome: OutcomeFatal, Err: lastErr}, lastErr
		}
	}
}

func (r *Retrier) enter(t Transition) {
	if r.observe != nil {
		r.observe(t)
	}
}

// cancelled keeps the last observed kind when waiting is interrupted.
func cancelled(last *APIError, cause error) *APIError {
	if last != nil {
		return last
	}
	return newError(KindNetworkError, 0, cause.Error(), "")
}
