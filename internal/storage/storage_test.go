package storage

import (
	"context"
	"os"
	"testing"
)

// newTestStore connects to TEST_DATABASE_DSN. The prefixes table is truncated
// so each test starts from an empty guild set.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	store, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := store.pool.Exec(ctx, `TRUNCATE prefixes`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return store
}

func countPrefixRows(t *testing.T, store *Store, guildID string) int {
	t.Helper()
	id, err := parseSnowflake(guildID)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var count int
	if err := store.pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM prefixes WHERE serverid = $1`, id).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUpsertPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, found, err := store.Prefix(ctx, "1001"); err != nil || found {
		t.Fatalf("expected no prefix, found=%v err=%v", found, err)
	}

	if err := store.UpsertPrefix(ctx, "1001", "p!"); err != nil {
		t.Fatalf("upsert prefix: %v", err)
	}
	if err := store.UpsertPrefix(ctx, "1001", "!!"); err != nil {
		t.Fatalf("update prefix: %v", err)
	}

	got, found, err := store.Prefix(ctx, "1001")
	if err != nil {
		t.Fatalf("get prefix: %v", err)
	}
	if !found || got != "!!" {
		t.Fatalf("expected !!, got %q (found=%v)", got, found)
	}
	if count := countPrefixRows(t, store, "1001"); count != 1 {
		t.Fatalf("expected one row, got %d", count)
	}
}

func TestPrefixesScan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for guild, prefix := range map[string]string{"1": "a!", "2": "b!"} {
		if err := store.UpsertPrefix(ctx, guild, prefix); err != nil {
			t.Fatalf("upsert %s: %v", guild, err)
		}
	}

	all, err := store.Prefixes(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(all) != 2 || all["1"] != "a!" || all["2"] != "b!" {
		t.Fatalf("unexpected prefixes: %v", all)
	}
}

func TestInvalidSnowflake(t *testing.T) {
	if _, err := parseSnowflake("not-a-guild"); err == nil {
		t.Fatalf("expected parse error")
	}
	if id, err := parseSnowflake("809587169520910346"); err != nil || id != 809587169520910346 {
		t.Fatalf("unexpected parse result: %d %v", id, err)
	}
}
