package utils

import (
	"context"
	"testing"
	"time"
)

func TestSlotScriptsCompile(t *testing.T) {
	if slotAcquireScript == nil || slotReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestSlotLimiter_RejectsMisuseWithoutRedis(t *testing.T) {
	var s *SlotLimiter
	if _, err := s.Acquire(context.Background(), "k", 1); err == nil {
		t.Fatalf("expected error for nil limiter")
	}
	s = NewSlotLimiter(nil, time.Minute)
	if err := s.Release(context.Background(), "k"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestRedisDefaults(t *testing.T) {
	c := RedisConfig{}.withDefaults()
	if c.PoolSize != 20 || c.PingTimeout != 2*time.Second {
		t.Fatalf("unexpected defaults %+v", c)
	}
}

func TestOnceClaimer_RequiresClient(t *testing.T) {
	o := NewOnceClaimer(nil, "eoc:", time.Hour)
	if _, err := o.Claim(context.Background(), "call-1"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
