package data

import (
	"context"
	"testing"

	"videomod/internal/pkg/hash"

	goredis "github.com/redis/go-redis/v9"
)

// saturatedBitSet reports every bit as set, the worst case for the
// Bloom prefilter where every lookup looks like a hit.
type saturatedBitSet struct {
	*fakeCache
}

func (s *saturatedBitSet) ScriptRun(ctx context.Context, script *goredis.Script, keys []string, args ...any) (any, error) {
	return int64(1), nil
}

func TestSafeFrameCache_FilterHitNeedsExactRecord(t *testing.T) {
	fc := &saturatedBitSet{newFakeCache()}
	c := NewSafeFrameCache(fc)
	h := &hash.FrameHash{Hash: 0x1122334455667788, Width: 640, Height: 480}

	hit, err := c.Contains(context.Background(), h)
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if hit {
		t.Fatal("Unrecorded frame reported safe on a filter hit alone")
	}

	if err := c.Remember(context.Background(), h); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}
	if _, ok := fc.strings[safeFrameKey(h)]; !ok {
		t.Fatalf("Remember did not write the exact record %s", safeFrameKey(h))
	}

	hit, err = c.Contains(context.Background(), h)
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !hit {
		t.Fatal("Recorded frame not reported safe")
	}
}

func TestSafeFrameCache_DistinctFrameNotConfirmed(t *testing.T) {
	fc := &saturatedBitSet{newFakeCache()}
	c := NewSafeFrameCache(fc)

	if err := c.Remember(context.Background(), &hash.FrameHash{Hash: 1}); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}

	hit, err := c.Contains(context.Background(), &hash.FrameHash{Hash: 2})
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if hit {
		t.Fatal("Frame with a different hash reported safe")
	}
}
