package dispatcher

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/vitanote/internal/ai"
	mpkg "github.com/local/vitanote/internal/metrics"
)

// Target is one provider/model pair in failover order.
type Target struct {
	Client ai.Client
	Model  string
}

type Options struct {
	Targets        []Target
	Breaker        Breaker
	RequestTimeout time.Duration
	MaxTokens      int

	// Attempts per target for transient errors.
	MaxAttempts int
	RetryBase   time.Duration
	RetryJitter time.Duration
	RetryFactor float64
}

// Dispatcher sends a prompt through the configured targets, retrying
// transient errors and skipping targets whose breaker is open.
type Dispatcher struct {
	opts  Options
	sleep func(context.Context, time.Duration) error
}

func New(opts Options) *Dispatcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.RetryFactor < 1 {
		opts.RetryFactor = 2
	}
	if opts.Breaker == nil {
		opts.Breaker = NewLocalBreaker(3, 30*time.Second)
	}
	return &Dispatcher{opts: opts, sleep: sleepCtx}
}

// Complete returns the first successful response text.
func (d *Dispatcher) Complete(ctx context.Context, prompt string) (string, error) {
	if len(d.opts.Targets) == 0 {
		return "", ErrNoProviders
	}

	var lastErr error
	for i, t := range d.opts.Targets {
		provider := t.Client.Name()
		log.Info().
			Str("provider", provider).
			Str("model", t.Model).
			Int("target", i+1).
			Int("targets", len(d.opts.Targets)).
			Msg("attempting model call")

		text, err := d.tryTarget(ctx, t, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if isFatalError(err) {
			log.Error().Err(err).Str("provider", provider).Str("model", t.Model).Msg("fatal error - no failover")
			return "", err
		}
		log.Warn().Err(err).Str("provider", provider).Str("model", t.Model).Msg("model call failed - trying next target")
	}

	log.Error().Err(lastErr).Msg("all model providers exhausted")
	mpkg.ObserveProvider("all", "all", "exhausted", 0)
	return "", lastErr
}

func (d *Dispatcher) tryTarget(ctx context.Context, t Target, prompt string) (string, error) {
	provider := t.Client.Name()
	delay := d.opts.RetryBase

	var lastErr error
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		resp, err := d.opts.Breaker.Execute(ctx, provider, t.Model, func() (ai.Response, error) {
			return d.call(ctx, t, prompt)
		})
		if err == nil {
			return resp.Text, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			log.Debug().Str("provider", provider).Str("model", t.Model).Msg("circuit breaker OPEN - skipping target")
			return "", err
		}
		if !isTransientError(err) || attempt == d.opts.MaxAttempts {
			return "", err
		}

		wait := delay
		if d.opts.RetryJitter > 0 {
			wait += time.Duration(rand.Int63n(int64(d.opts.RetryJitter)))
		}
		mpkg.IncRetry()
		log.Warn().Err(err).Str("provider", provider).Str("model", t.Model).Int("attempt", attempt).Dur("backoff", wait).Msg("retrying model call")
		if err := d.sleep(ctx, wait); err != nil {
			return "", lastErr
		}
		delay = time.Duration(float64(delay) * d.opts.RetryFactor)
	}
	return "", lastErr
}

func (d *Dispatcher) call(ctx context.Context, t Target, prompt string) (ai.Response, error) {
	provider := t.Client.Name()
	timeout := d.opts.RequestTimeout

	cctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := t.Client.Do(cctx, ai.Request{Model: t.Model, Prompt: prompt, MaxTokens: d.opts.MaxTokens})
	dur := time.Since(start)

	if err != nil && cctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		mpkg.ObserveProvider(provider, t.Model, "timeout", dur)
		return ai.Response{}, &RateLimitError{Provider: provider, Model: t.Model, Reason: "timeout"}
	}

	mpkg.ObserveProvider(provider, t.Model, classify(err), dur)
	if err == nil {
		log.Debug().
			Str("provider", provider).
			Str("model", t.Model).
			Dur("duration", dur).
			Int("tokens_in", resp.TokensIn).
			Int("tokens_out", resp.TokensOut).
			Msg("model call success")
	}
	return resp, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
