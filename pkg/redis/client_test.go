package redis

import (
	"testing"

	"github.com/groupcart/groupcart-backend/pkg/config"
)

func TestBuildKeySkipsEmptyParts(t *testing.T) {
	c := &Client{}

	if got := c.IdempotencyKey("stripe", "evt_123"); got != "gc:idempotency:stripe:evt_123" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := c.IdempotencyKey("", "evt_123"); got != "gc:idempotency:evt_123" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := c.LockKey("session-sweep"); got != "gc:lock:session-sweep" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address is set")
	}
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:pw@localhost:6379/2"})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
}

func TestOptionsFromConfigFallsBackToAddress(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{Address: "cache:6380", Password: "pw", DB: 1, PoolSize: 5})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "cache:6380" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.PoolSize != 5 {
		t.Fatalf("unexpected pool size %d", opts.PoolSize)
	}
}
