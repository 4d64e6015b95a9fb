package prefix

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeStore struct {
	mu      sync.Mutex
	rows    map[string]string
	reads   int
	upserts int
	failGet error
	failPut error
}

func newFakeStore(rows map[string]string) *fakeStore {
	if rows == nil {
		rows = map[string]string{}
	}
	return &fakeStore{rows: rows}
}

func (f *fakeStore) Prefix(_ context.Context, guildID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.failGet != nil {
		return "", false, f.failGet
	}
	prefix, ok := f.rows[guildID]
	return prefix, ok, nil
}

func (f *fakeStore) UpsertPrefix(_ context.Context, guildID, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return f.failPut
	}
	f.upserts++
	f.rows[guildID] = prefix
	return nil
}

func (f *fakeStore) Prefixes(context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.rows))
	for k, v := range f.rows {
		out[k] = v
	}
	return out, nil
}

func TestPrefixMissUpsertsDefault(t *testing.T) {
	store := newFakeStore(nil)
	cache := NewCache(store, "p!")

	for i := 0; i < 3; i++ {
		prefix, err := cache.Prefix(context.Background(), "100")
		if err != nil {
			t.Fatalf("prefix: %v", err)
		}
		if prefix != "p!" {
			t.Fatalf("expected default prefix, got %q", prefix)
		}
	}
	if len(store.rows) != 1 || store.rows["100"] != "p!" {
		t.Fatalf("expected exactly one default row, got %v", store.rows)
	}
	if store.upserts != 1 {
		t.Fatalf("expected one upsert, got %d", store.upserts)
	}
}

func TestPrefixHitSkipsDatabase(t *testing.T) {
	store := newFakeStore(map[string]string{"200": "!!"})
	cache := NewCache(store, "p!")

	for i := 0; i < 5; i++ {
		prefix, err := cache.Prefix(context.Background(), "200")
		if err != nil {
			t.Fatalf("prefix: %v", err)
		}
		if prefix != "!!" {
			t.Fatalf("expected !!, got %q", prefix)
		}
	}
	if store.reads != 1 {
		t.Fatalf("expected a single read, got %d", store.reads)
	}
	if store.upserts != 0 {
		t.Fatalf("expected no upserts, got %d", store.upserts)
	}
}

func TestWarmPopulatesCache(t *testing.T) {
	store := newFakeStore(map[string]string{"1": "a!", "2": "b!"})
	cache := NewCache(store, "p!")

	n, err := cache.Warm(context.Background())
	if err != nil {
		t.Fatalf("warm: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
	if prefix, _ := cache.Prefix(context.Background(), "2"); prefix != "b!" {
		t.Fatalf("expected b!, got %q", prefix)
	}
	if store.reads != 0 {
		t.Fatalf("expected warm cache hit, got %d reads", store.reads)
	}
}

func TestPrefixErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	store := newFakeStore(nil)
	store.failGet = boom
	cache := NewCache(store, "p!")

	if _, err := cache.Prefix(context.Background(), "300"); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if _, ok := cache.cached("300"); ok {
		t.Fatalf("failed lookup must not populate the cache")
	}
}

func TestResolveDirectMessage(t *testing.T) {
	store := newFakeStore(nil)
	cache := NewCache(store, "p!")

	prefixes, err := cache.Resolve(context.Background(), "", "42")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"<@42> ", "<@!42> ", "p!"}
	if len(prefixes) != len(want) {
		t.Fatalf("expected %v, got %v", want, prefixes)
	}
	for i := range want {
		if prefixes[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, prefixes)
		}
	}
	if store.reads != 0 || store.upserts != 0 {
		t.Fatalf("direct messages must not touch the store")
	}
}

func TestSetKeepsCacheAndStoreInSync(t *testing.T) {
	store := newFakeStore(map[string]string{"400": "p!"})
	cache := NewCache(store, "p!")
	ctx := context.Background()

	if err := cache.Set(ctx, "400", "$"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if prefix, _ := cache.Prefix(ctx, "400"); prefix != "$" || store.rows["400"] != "$" {
		t.Fatalf("cache %q and store %q diverged", prefix, store.rows["400"])
	}

	store.failPut = errors.New("write failed")
	if err := cache.Set(ctx, "400", "?"); err == nil {
		t.Fatalf("expected write failure")
	}
	if prefix, _ := cache.Prefix(ctx, "400"); prefix != "$" {
		t.Fatalf("failed write must keep previous prefix, got %q", prefix)
	}

	if err := cache.Set(ctx, "400", ""); !errors.Is(err, ErrInvalidPrefix) {
		t.Fatalf("expected ErrInvalidPrefix, got %v", err)
	}
}
