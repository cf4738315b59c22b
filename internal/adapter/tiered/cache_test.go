package tiered_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/settingsadmin/internal/adapter/tiered"
	"github.com/Strob0t/settingsadmin/internal/port/cache/cachetest"
)

func TestTiered_Compliance(t *testing.T) {
	cachetest.RunCompliance(t, tiered.New(cachetest.NewMemory(), cachetest.NewMemory(), time.Minute), nil)
}

func TestTiered_L1Hit(t *testing.T) {
	l1, l2 := cachetest.NewMemory(), cachetest.NewMemory()
	c := tiered.New(l1, l2, 5*time.Minute)
	ctx := context.Background()

	_ = l1.Set(ctx, "key1", []byte("val1"), 0)
	l2.Err = errors.New("l2 down")

	val, found, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("L1 hit must not consult L2: %v", err)
	}
	if !found || string(val) != "val1" {
		t.Fatalf("expected val1, got %q found=%v", val, found)
	}
}

func TestTiered_L2HitWithBackfill(t *testing.T) {
	l1, l2 := cachetest.NewMemory(), cachetest.NewMemory()
	c := tiered.New(l1, l2, 5*time.Minute)
	ctx := context.Background()

	_ = l2.Set(ctx, "key2", []byte("val2"), 0)

	val, found, err := c.Get(ctx, "key2")
	if err != nil {
		t.Fatal(err)
	}
	if !found || string(val) != "val2" {
		t.Fatalf("expected val2, got %q found=%v", val, found)
	}

	l1Val, ok, _ := l1.Get(ctx, "key2")
	if !ok || string(l1Val) != "val2" {
		t.Fatalf("expected L1 backfill, got %q", l1Val)
	}
}

func TestTiered_L2Error(t *testing.T) {
	l1, l2 := cachetest.NewMemory(), cachetest.NewMemory()
	l2.Err = errors.New("l2 down")
	c := tiered.New(l1, l2, time.Minute)

	_, found, err := c.Get(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected L2 error to surface")
	}
	if found {
		t.Fatal("expected miss")
	}
}

func TestTiered_SetKeepsL1OnL2Failure(t *testing.T) {
	l1, l2 := cachetest.NewMemory(), cachetest.NewMemory()
	l2.Err = errors.New("l2 down")
	c := tiered.New(l1, l2, time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "key3", []byte("val3"), time.Minute); err == nil {
		t.Fatal("expected L2 error")
	}
	if _, ok, _ := l1.Get(ctx, "key3"); !ok {
		t.Fatal("expected key3 in L1 despite L2 failure")
	}
}

func TestTiered_DeleteBoth(t *testing.T) {
	l1, l2 := cachetest.NewMemory(), cachetest.NewMemory()
	c := tiered.New(l1, l2, 5*time.Minute)
	ctx := context.Background()

	_ = c.Set(ctx, "key4", []byte("val4"), time.Minute)
	if err := c.Delete(ctx, "key4"); err != nil {
		t.Fatal(err)
	}
	if l1.Len() != 0 || l2.Len() != 0 {
		t.Fatalf("expected both levels empty, got l1=%d l2=%d", l1.Len(), l2.Len())
	}
}
