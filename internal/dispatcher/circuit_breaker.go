package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"

	"github.com/local/vitanote/internal/ai"
	"github.com/local/vitanote/internal/metrics"
)

// Breaker guards one provider:model pair. Only transient failures count
// against it.
type Breaker interface {
	Execute(ctx context.Context, provider, model string, call func() (ai.Response, error)) (ai.Response, error)
}

// RedisBreaker keeps breaker state in Redis so every replica shares cooldowns.
type RedisBreaker struct {
	redis       *redis.Client
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// NewRedisBreaker creates a Redis-backed circuit breaker.
func NewRedisBreaker(redisClient *redis.Client, baseBackoff, maxBackoff time.Duration) *RedisBreaker {
	return &RedisBreaker{
		redis:       redisClient,
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
	}
}

func breakerKey(provider, model string) string {
	return fmt.Sprintf("vitanote:cb:%s:%s", strings.ToLower(provider), strings.ToLower(model))
}

func (cb *RedisBreaker) Execute(ctx context.Context, provider, model string, call func() (ai.Response, error)) (ai.Response, error) {
	if cb.IsOpen(ctx, provider, model) {
		return ai.Response{}, fmt.Errorf("%s/%s: %w", provider, model, ErrCircuitOpen)
	}
	resp, err := call()
	switch {
	case err == nil:
		cb.Reset(ctx, provider, model)
	case isTransientError(err):
		cb.Trip(ctx, provider, model)
	}
	return resp, err
}

// Trip opens the breaker with exponential backoff: base, 2x base, 4x base,
// capped at maxBackoff.
func (cb *RedisBreaker) Trip(ctx context.Context, provider, model string) {
	key := breakerKey(provider, model)

	failuresStr, _ := cb.redis.HGet(ctx, key, "failures").Result()
	failures, _ := strconv.Atoi(failuresStr)
	failures++

	backoff := cb.baseBackoff
	for i := 1; i < failures; i++ {
		backoff *= 2
		if backoff > cb.maxBackoff {
			backoff = cb.maxBackoff
			break
		}
	}

	retryAt := time.Now().Add(backoff).Unix()
	cb.redis.HSet(ctx, key, map[string]interface{}{
		"state":     "open",
		"retry_at":  retryAt,
		"failures":  failures,
		"opened_at": time.Now().Unix(),
	})
	cb.redis.Expire(ctx, key, 2*cb.maxBackoff)
	metrics.BreakerOpened(provider, model)

	log.Warn().
		Str("provider", provider).
		Str("model", model).
		Dur("cooldown", backoff).
		Int("failures", failures).
		Time("retry_at", time.Unix(retryAt, 0)).
		Msg("circuit breaker OPENED")
}

// IsOpen checks the cooldown; an expired cooldown moves to half-open and
// lets one probe through.
func (cb *RedisBreaker) IsOpen(ctx context.Context, provider, model string) bool {
	key := breakerKey(provider, model)

	state, err := cb.redis.HGet(ctx, key, "state").Result()
	if err != nil || state != "open" {
		return false
	}

	retryAtStr, _ := cb.redis.HGet(ctx, key, "retry_at").Result()
	retryAt, _ := strconv.ParseInt(retryAtStr, 10, 64)
	if time.Now().Unix() >= retryAt {
		cb.redis.HSet(ctx, key, "state", "half_open")
		log.Info().Str("provider", provider).Str("model", model).Msg("circuit breaker moved to HALF-OPEN")
		return false
	}
	return true
}

// Reset closes the breaker after a success.
func (cb *RedisBreaker) Reset(ctx context.Context, provider, model string) {
	key := breakerKey(provider, model)
	state, _ := cb.redis.HGet(ctx, key, "state").Result()
	if state == "" || state == "closed" {
		return
	}
	cb.redis.Del(ctx, key)
	metrics.BreakerClosed(provider, model)
	log.Info().Str("provider", provider).Str("model", model).Msg("circuit breaker CLOSED (reset)")
}

// LocalBreaker keeps one in-process gobreaker per provider:model.
type LocalBreaker struct {
	threshold uint32
	cooldown  time.Duration

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[ai.Response]
}

// NewLocalBreaker trips after threshold consecutive transient failures and
// stays open for cooldown.
func NewLocalBreaker(threshold uint32, cooldown time.Duration) *LocalBreaker {
	if threshold == 0 {
		threshold = 3
	}
	return &LocalBreaker{threshold: threshold, cooldown: cooldown, breakers: map[string]*gobreaker.CircuitBreaker[ai.Response]{}}
}

func (lb *LocalBreaker) get(provider, model string) *gobreaker.CircuitBreaker[ai.Response] {
	key := breakerKey(provider, model)
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if b, ok := lb.breakers[key]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[ai.Response](gobreaker.Settings{
		Name:        key,
		MaxRequests: 1,
		Timeout:     lb.cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= lb.threshold },
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransientError(err)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			switch to {
			case gobreaker.StateOpen:
				metrics.BreakerOpened(provider, model)
			case gobreaker.StateClosed:
				metrics.BreakerClosed(provider, model)
			}
			log.Warn().Str("provider", provider).Str("model", model).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	lb.breakers[key] = b
	return b
}

func (lb *LocalBreaker) Execute(_ context.Context, provider, model string, call func() (ai.Response, error)) (ai.Response, error) {
	resp, err := lb.get(provider, model).Execute(call)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ai.Response{}, fmt.Errorf("%s/%s: %w", provider, model, ErrCircuitOpen)
	}
	return resp, err
}
