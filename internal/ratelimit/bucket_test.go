package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBucket(t *testing.T, capacity int, refill float64) *Bucket {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewBucket(client, capacity, refill, time.Hour)
}

func TestBucketAllowsUpToCapacity(t *testing.T) {
	b := newTestBucket(t, 3, 0) // no refill so the count is exact
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := b.Allow(ctx, "sess")
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d rejected below capacity", i)
		}
	}

	ok, err := b.Allow(ctx, "sess")
	if err != nil {
		t.Fatalf("allow over capacity: %v", err)
	}
	if ok {
		t.Fatal("request allowed over capacity")
	}
}

func TestBucketIsPerSession(t *testing.T) {
	b := newTestBucket(t, 1, 0)
	ctx := context.Background()

	if ok, _ := b.Allow(ctx, "a"); !ok {
		t.Fatal("first request for session a rejected")
	}
	if ok, _ := b.Allow(ctx, "a"); ok {
		t.Fatal("second request for session a allowed")
	}
	if ok, _ := b.Allow(ctx, "b"); !ok {
		t.Fatal("session b rejected by session a's bucket")
	}
}
