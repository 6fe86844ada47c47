package interpret

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"avplan/internal/logger"
	"avplan/internal/port"
)

// circuitState tracks rate-limit backoff for a single provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackInterpreter tries providers in order, skipping those with open circuits.
// Context errors stop the chain immediately: a spent deadline is not handed to
// the next provider.
type FallbackInterpreter struct {
	interpreters []port.Interpreter
	circuits     []*circuitState
	names        []string
	now          func() time.Time
	log          zerolog.Logger
}

// NewFallbackInterpreter creates a FallbackInterpreter from an ordered list of
// interpreters and their names.
func NewFallbackInterpreter(interpreters []port.Interpreter, names []string) *FallbackInterpreter {
	circuits := make([]*circuitState, len(interpreters))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackInterpreter{
		interpreters: interpreters,
		circuits:     circuits,
		names:        names,
		now:          time.Now,
		log:          logger.WithComponent("interpret.fallback"),
	}
}

func (f *FallbackInterpreter) Interpret(ctx context.Context, input port.InterpretInput) (*port.InterpretOutput, error) {
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, in := range f.interpreters {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			f.log.Warn().Str("provider", f.names[i]).Time("reset_at", resetAt).Msg("skipping provider, circuit open")
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := in.Interpret(ctx, input)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		f.log.Warn().Err(err).Str("provider", f.names[i]).Msg("provider failed")
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		retryAfter := earliestReset.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all providers rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}
