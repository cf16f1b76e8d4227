package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/prospector/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS prospects (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	domain TEXT NOT NULL,
	url TEXT NOT NULL,
	title TEXT NOT NULL,
	snippet TEXT NOT NULL,
	emails TEXT NOT NULL,
	contact_links TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS prospects_run_id ON prospects (run_id);
CREATE INDEX IF NOT EXISTS prospects_domain ON prospects (domain);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

// Save stores lists as JSON arrays so entries may contain any character, and
// created_at as unix nanoseconds so Since compares instants.
func (b *sqliteBackend) Save(ctx context.Context, p *storage.Prospect) error {
	emailsJSON, err := marshalList(p.Emails)
	if err != nil {
		return fmt.Errorf("sqlite: marshal emails: %w", err)
	}
	contactsJSON, err := marshalList(p.ContactLinks)
	if err != nil {
		return fmt.Errorf("sqlite: marshal contact links: %w", err)
	}

	query := `
	INSERT INTO prospects (
		id, run_id, domain, url, title, snippet, emails, contact_links, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		p.ID,
		p.RunID,
		p.Domain,
		p.URL,
		p.Title,
		p.Snippet,
		emailsJSON,
		contactsJSON,
		p.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert prospect %s: %w", p.Domain, err)
	}
	return nil
}

// Query returns matching prospects in insertion order.
func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Prospect, error) {
	query := `SELECT id, run_id, domain, url, title, snippet, emails, contact_links, created_at FROM prospects WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UnixNano())
	}

	query += ` ORDER BY rowid ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	defer rows.Close()

	results := []*storage.Prospect{}
	for rows.Next() {
		var p storage.Prospect
		var emails, contacts string
		var createdAt int64

		err := rows.Scan(
			&p.ID, &p.RunID, &p.Domain, &p.URL, &p.Title, &p.Snippet,
			&emails, &contacts, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		p.CreatedAt = time.Unix(0, createdAt).UTC()
		if err := json.Unmarshal([]byte(emails), &p.Emails); err != nil {
			return nil, fmt.Errorf("sqlite: decode emails for %s: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(contacts), &p.ContactLinks); err != nil {
			return nil, fmt.Errorf("sqlite: decode contact links for %s: %w", p.ID, err)
		}

		results = append(results, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	return results, nil
}

func marshalList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	return string(data), err
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
