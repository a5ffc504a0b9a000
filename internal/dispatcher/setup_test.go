package dispatcher

import (
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/local/vitanote/internal/config"
)

func TestNewFromConfigWithoutKeys(t *testing.T) {
	if d := NewFromConfig(config.ModelConfig{}, config.BreakerConfig{}, nil); d != nil {
		t.Fatalf("dispatcher = %+v, want nil", d)
	}
}

func TestNewFromConfigFailoverOrder(t *testing.T) {
	mc := config.ModelConfig{
		GroqAPIKey:      "g",
		GroqModel:       "llama",
		AnthropicAPIKey: "a",
		AnthropicModel:  "claude",
	}
	d := NewFromConfig(mc, config.BreakerConfig{BaseBackoff: time.Second}, nil)
	if d == nil || len(d.opts.Targets) != 2 {
		t.Fatalf("dispatcher = %+v", d)
	}
	if d.opts.Targets[0].Client.Name() != "groq" || d.opts.Targets[1].Client.Name() != "anthropic" {
		t.Fatalf("order = %s, %s", d.opts.Targets[0].Client.Name(), d.opts.Targets[1].Client.Name())
	}
	if _, ok := d.opts.Breaker.(*LocalBreaker); !ok {
		t.Fatalf("breaker = %T, want *LocalBreaker", d.opts.Breaker)
	}
}

func TestNewFromConfigUsesSharedRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	d := NewFromConfig(config.ModelConfig{OpenAIAPIKey: "o"}, config.BreakerConfig{}, rdb)
	rb, ok := d.opts.Breaker.(*RedisBreaker)
	if !ok {
		t.Fatalf("breaker = %T, want *RedisBreaker", d.opts.Breaker)
	}
	if rb.redis != rdb {
		t.Fatal("breaker does not use the caller's client")
	}
}
