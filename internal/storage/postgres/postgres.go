package postgres

import (
	"context"
	"fmt"

	"github.com/FranksOps/prospector/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS prospects (
	seq BIGSERIAL,
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	domain TEXT NOT NULL,
	url TEXT NOT NULL,
	title TEXT NOT NULL,
	snippet TEXT NOT NULL,
	emails TEXT[] NOT NULL,
	contact_links TEXT[] NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS prospects_run_id ON prospects (run_id);
CREATE INDEX IF NOT EXISTS prospects_domain ON prospects (domain);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, p *storage.Prospect) error {
	query := `
	INSERT INTO prospects (
		id, run_id, domain, url, title, snippet, emails, contact_links, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := b.pool.Exec(ctx, query,
		p.ID,
		p.RunID,
		p.Domain,
		p.URL,
		p.Title,
		p.Snippet,
		nonNil(p.Emails),
		nonNil(p.ContactLinks),
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert prospect %s: %w", p.Domain, err)
	}
	return nil
}

// Query returns matching prospects in insertion order.
func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Prospect, error) {
	query := `SELECT id, run_id, domain, url, title, snippet, emails, contact_links, created_at FROM prospects WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, paramCount)
		args = append(args, filter.RunID)
		paramCount++
	}
	if filter.Domain != "" {
		query += fmt.Sprintf(` AND domain = $%d`, paramCount)
		args = append(args, filter.Domain)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY seq ASC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	defer rows.Close()

	results := []*storage.Prospect{}
	for rows.Next() {
		var p storage.Prospect
		err := rows.Scan(
			&p.ID, &p.RunID, &p.Domain, &p.URL, &p.Title, &p.Snippet,
			&p.Emails, &p.ContactLinks, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		results = append(results, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
