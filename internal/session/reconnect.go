package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prathish132002/Live-Interview-App-sub000/internal/turn"
)

// Default rejoin parameters.
const (
	defaultMaxAttempts = 10
	defaultBackoff     = 1 * time.Second
	defaultMaxBackoff  = 30 * time.Second
	defaultStopTimeout = 15 * time.Second
)

// Factory builds a fresh Controller for one join attempt, seeded with the
// transcript committed so far. Controllers are single-use, so every attempt
// needs a new one.
type Factory func(seed []turn.Entry) *Controller

// Rejoiner runs an interview across transport interruptions. It drives one
// Controller at a time; when a session ends with ErrInterrupted it builds a
// replacement with exponential backoff and the transcript carried forward,
// so the final report still covers the whole interview.
type Rejoiner struct {
	factory     Factory
	maxAttempts int
	backoff     time.Duration
	maxBackoff  time.Duration
	stopTimeout time.Duration
}

// RejoinerConfig configures a [Rejoiner].
type RejoinerConfig struct {
	// Factory builds the controller for each join. Required.
	Factory Factory

	// MaxAttempts is the maximum number of rejoin attempts per
	// interruption before giving up. Defaults to 10 if zero.
	MaxAttempts int

	// Backoff is the initial delay between rejoin attempts. Doubles each
	// attempt up to MaxBackoff. Defaults to 1s if zero.
	Backoff time.Duration

	// MaxBackoff is the upper limit on the backoff delay. Defaults to 30s
	// if zero.
	MaxBackoff time.Duration

	// StopTimeout bounds the drain when the run context is cancelled.
	// Defaults to 15s if zero.
	StopTimeout time.Duration
}

// NewRejoiner creates a [Rejoiner] with the given configuration.
func NewRejoiner(cfg RejoinerConfig) *Rejoiner {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}
	return &Rejoiner{
		factory:     cfg.Factory,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		maxBackoff:  maxBackoff,
		stopTimeout: stopTimeout,
	}
}

// Run drives sessions until the interview ends. Cancelling ctx stops the
// current session and counts as a clean end, as does a clean remote close.
// An interruption triggers the rejoin cycle. The returned controller holds
// the accumulated transcript and produces the final report; it is nil only
// when the initial join fails.
func (r *Rejoiner) Run(ctx context.Context) (*Controller, error) {
	ctl := r.factory(nil)
	if err := ctl.Start(ctx); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), r.stopTimeout)
			_ = ctl.Stop(stopCtx)
			cancel()
			return ctl, nil
		case <-ctl.Done():
		}

		err := ctl.Err()
		if err == nil {
			return ctl, nil
		}
		if !errors.Is(err, ErrInterrupted) {
			return ctl, err
		}

		next, rerr := r.rejoin(ctx, ctl.Transcript())
		if rerr != nil {
			if ctx.Err() != nil {
				// Operator stop during backoff: a clean end.
				return ctl, nil
			}
			return ctl, rerr
		}
		ctl = next
	}
}

// rejoin starts replacement sessions with exponential backoff until one
// sticks or the attempt budget runs out.
func (r *Rejoiner) rejoin(ctx context.Context, seed []turn.Entry) (*Controller, error) {
	currentBackoff := r.backoff

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		slog.Info("attempting session rejoin",
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"backoff", currentBackoff,
		)

		ctl := r.factory(seed)
		err := ctl.Start(ctx)
		if err == nil {
			slog.Info("session rejoined",
				"attempt", attempt,
				"turns_carried", len(seed),
			)
			return ctl, nil
		}

		slog.Warn("session rejoin attempt failed",
			"attempt", attempt,
			"error", err,
		)

		// Wait before retrying.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(currentBackoff):
		}

		// Exponential backoff.
		currentBackoff *= 2
		if currentBackoff > r.maxBackoff {
			currentBackoff = r.maxBackoff
		}
	}

	slog.Error("session rejoin abandoned after max attempts",
		"max_attempts", r.maxAttempts,
	)
	return nil, fmt.Errorf("session: rejoin abandoned after %d attempts", r.maxAttempts)
}
