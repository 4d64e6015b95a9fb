package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	pool *pgxpool.Pool
}

// New opens the connection pool and pings the server so an unreachable
// database fails the boot sequence here rather than on the first message.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

// Prefix returns the stored prefix for a guild. A missing row and a NULL or
// empty prefix both report found=false.
func (s *Store) Prefix(ctx context.Context, guildID string) (string, bool, error) {
	id, err := parseSnowflake(guildID)
	if err != nil {
		return "", false, err
	}

	var prefix *string
	err = s.pool.QueryRow(ctx, `SELECT prefix FROM prefixes WHERE serverid = $1`, id).Scan(&prefix)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	if prefix == nil || *prefix == "" {
		return "", false, nil
	}
	return *prefix, true, nil
}

func (s *Store) UpsertPrefix(ctx context.Context, guildID, prefix string) error {
	id, err := parseSnowflake(guildID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO prefixes (serverid, prefix) VALUES ($1, $2)
		ON CONFLICT (serverid) DO UPDATE SET prefix = $2
	`, id, prefix)
	return err
}

// Prefixes scans the whole table, keyed by guild snowflake.
func (s *Store) Prefixes(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT serverid, prefix FROM prefixes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefixes := make(map[string]string)
	for rows.Next() {
		var id int64
		var prefix *string
		if err := rows.Scan(&id, &prefix); err != nil {
			return nil, err
		}
		if prefix == nil || *prefix == "" {
			continue
		}
		prefixes[strconv.FormatInt(id, 10)] = *prefix
	}
	return prefixes, rows.Err()
}

func parseSnowflake(id string) (int64, error) {
	parsed, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", id, err)
	}
	return parsed, nil
}
