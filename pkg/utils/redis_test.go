package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestSlotScriptsLoaded(t *testing.T) {
	if slotAcquireScript == nil || slotReleaseScript == nil {
		t.Fatalf("expected slot scripts to be initialized")
	}
	if len(slotAcquireScript.Hash()) != 40 || slotAcquireScript.Hash() == slotReleaseScript.Hash() {
		t.Fatalf("unexpected script hash %q", slotAcquireScript.Hash())
	}
}

func TestAcquireSlot_ValidatesArguments(t *testing.T) {
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()
	now := time.Now()

	if _, err := AcquireSlot(ctx, nil, "k", "tok", 1, time.Second, now); !errors.Is(err, ErrRedisNil) {
		t.Fatalf("expected ErrRedisNil, got %v", err)
	}
	if _, err := AcquireSlot(ctx, rdb, "", "tok", 1, time.Second, now); !errors.Is(err, ErrSlotKey) {
		t.Fatalf("expected ErrSlotKey, got %v", err)
	}
	if _, err := AcquireSlot(ctx, rdb, "k", "", 1, time.Second, now); !errors.Is(err, ErrSlotMember) {
		t.Fatalf("expected ErrSlotMember, got %v", err)
	}
	if _, err := AcquireSlot(ctx, rdb, "k", "tok", 0, time.Second, now); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := AcquireSlot(ctx, rdb, "k", "tok", 1, 0, now); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
	if _, err := ReleaseSlot(ctx, rdb, "k", ""); !errors.Is(err, ErrSlotMember) {
		t.Fatalf("expected ErrSlotMember, got %v", err)
	}
}

func TestRedisConfig_Options(t *testing.T) {
	o := RedisConfig{Addr: "cache:6379", PoolSize: 3, MinIdleConns: -1}.options()
	if o.PoolSize != 3 || o.DialTimeout != 3*time.Second || o.MinIdleConns != 0 {
		t.Fatalf("unexpected options: %+v", o)
	}
	if o.ConnMaxLifetime != 30*time.Minute || o.Addr != "cache:6379" {
		t.Fatalf("unexpected options: %+v", o)
	}
	if o := (RedisConfig{ReadTimeout: time.Second}).options(); o.ReadTimeout != time.Second || o.PoolSize != 20 {
		t.Fatalf("explicit values must win: %+v", o)
	}
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
