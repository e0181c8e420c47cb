package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("empty cache should miss")
	}
	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	got, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Errorf("Get: got %q ok=%v err=%v, want v", got, ok, err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	m := NewMemory(10)
	m.now = func() time.Time { return now }

	m.Set(ctx, "k", []byte("v"), time.Second)
	now = now.Add(2 * time.Second)

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("expired entry should miss")
	}
	if m.Len() != 0 {
		t.Errorf("Len: got %d, want 0 after expired read", m.Len())
	}
}

func TestMemoryEvictsWhenFull(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	m := NewMemory(2)
	m.now = func() time.Time { return now }

	m.Set(ctx, "a", []byte("1"), time.Second)
	m.Set(ctx, "b", []byte("2"), time.Hour)
	m.Set(ctx, "c", []byte("3"), time.Hour)

	if m.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", m.Len())
	}
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Error("entry closest to expiry should have been evicted")
	}
	if _, ok, _ := m.Get(ctx, "c"); !ok {
		t.Error("new entry missing")
	}
}

func TestMemoryCopiesValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(1)
	buf := []byte("abc")

	m.Set(ctx, "k", buf, time.Minute)
	buf[0] = 'x'

	got, _, _ := m.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("got %q, want abc", got)
	}
}

func TestKeyIsStableAndSeparated(t *testing.T) {
	if Key("a", "b") != Key("a", "b") {
		t.Error("Key is not deterministic")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Key parts are not separated")
	}
	if !strings.HasPrefix(Key("x"), "cardash:") || strings.ContainsAny(Key("x y"), " \n") {
		t.Errorf("unexpected key format: %q", Key("x y"))
	}
}

func TestNewBackends(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"memory", false},
		{"", false},
		{"none", false},
		{"redis", false},
		{"memcache", false},
		{"sqlite", true},
	}
	for _, tt := range tests {
		c, err := New(Options{Backend: tt.backend, RedisAddr: "localhost:6379", MemcacheAddr: "localhost:11211"})
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q): error = %v, wantErr %v", tt.backend, err, tt.wantErr)
			continue
		}
		if c != nil {
			c.Close()
		}
	}
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	m := NewMemory(2)
	m.now = func() time.Time { return now }

	m.Set(ctx, "forever", []byte("1"), 0)
	m.Set(ctx, "negative", []byte("2"), -time.Second)
	now = now.Add(24 * time.Hour)

	for _, k := range []string{"forever", "negative"} {
		if _, ok, _ := m.Get(ctx, k); !ok {
			t.Errorf("%s: entry without expiry should hit", k)
		}
	}

	m.Set(ctx, "short", []byte("3"), time.Hour)
	m.Set(ctx, "next", []byte("4"), time.Hour)
	if _, ok, _ := m.Get(ctx, "short"); ok {
		t.Error("expiring entry should be evicted before entries without expiry")
	}
}

func TestMemcacheExpirationSeconds(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int32
	}{
		{0, 0},
		{-time.Minute, 0},
		{time.Millisecond, 1},
		{90 * time.Second, 90},
		{1500 * time.Millisecond, 2},
		{365 * 24 * time.Hour, 30 * 24 * 60 * 60},
	}
	for _, tt := range tests {
		if got := expirationSeconds(tt.ttl); got != tt.want {
			t.Errorf("expirationSeconds(%v): got %d, want %d", tt.ttl, got, tt.want)
		}
	}
}
