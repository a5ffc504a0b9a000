package dispatcher

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/local/vitanote/internal/ai"
	"github.com/local/vitanote/internal/config"
)

// NewFromConfig builds the failover chain Groq -> OpenAI -> Anthropic from
// whichever keys are set. It returns nil when no key is configured.
// Breaker state lives in rdb when it is non-nil; the caller owns rdb.
func NewFromConfig(mc config.ModelConfig, bc config.BreakerConfig, rdb *redis.Client) *Dispatcher {
	var targets []Target
	if mc.GroqAPIKey != "" {
		targets = append(targets, Target{Client: ai.NewGroqClient(mc.GroqAPIKey, mc.GroqBaseURL), Model: mc.GroqModel})
	}
	if mc.OpenAIAPIKey != "" {
		targets = append(targets, Target{Client: ai.NewOpenAIClient("openai", mc.OpenAIAPIKey, "", nil), Model: mc.OpenAIModel})
	}
	if mc.AnthropicAPIKey != "" {
		targets = append(targets, Target{Client: ai.NewAnthropicClient(mc.AnthropicAPIKey, "", nil), Model: mc.AnthropicModel})
	}
	if len(targets) == 0 {
		return nil
	}

	var breaker Breaker = NewLocalBreaker(3, bc.BaseBackoff)
	if rdb != nil {
		breaker = NewRedisBreaker(rdb, bc.BaseBackoff, bc.MaxBackoff)
	}

	log.Info().Int("targets", len(targets)).Msg("model dispatcher configured")
	return New(Options{
		Targets:        targets,
		Breaker:        breaker,
		RequestTimeout: mc.RequestTimeout,
		MaxAttempts:    mc.MaxAttempts,
		RetryBase:      mc.RetryBaseDelay,
		RetryJitter:    mc.RetryJitter,
		RetryFactor:    mc.RetryBackoffFactor,
	})
}
