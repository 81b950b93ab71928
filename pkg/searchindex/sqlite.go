package searchindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/wanderplan/places-cli/internal/model"
)

// SQLiteIndex implements Writer on an FTS5 virtual table via modernc.org/sqlite.
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the index database at the given DSN and runs
// the schema migration. ":memory:" works for tests.
func NewSQLite(dsn string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "searchindex: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "searchindex: exec %s", pragma)
		}
	}

	idx := &SQLiteIndex{db: db}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS places (
	id         TEXT PRIMARY KEY,
	city       TEXT NOT NULL,
	data       TEXT NOT NULL,
	indexed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE VIRTUAL TABLE IF NOT EXISTS places_fts USING fts5(
	id UNINDEXED,
	name,
	description,
	address,
	tags,
	flags
);

CREATE INDEX IF NOT EXISTS idx_places_city ON places(city);
`

func (s *SQLiteIndex) migrate() error {
	_, err := s.db.Exec(migration)
	return eris.Wrap(err, "searchindex: migrate")
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// Write upserts the record row and rebuilds its FTS entry.
func (s *SQLiteIndex) Write(ctx context.Context, rec model.RawRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "searchindex: marshal record")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "searchindex: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO places (id, city, data) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET city = excluded.city, data = excluded.data, indexed_at = datetime('now')`,
		rec.ID, strings.ToLower(rec.City), string(data),
	); err != nil {
		return eris.Wrapf(err, "searchindex: upsert place %s", rec.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM places_fts WHERE id = ?`, rec.ID); err != nil {
		return eris.Wrapf(err, "searchindex: clear fts %s", rec.ID)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO places_fts (id, name, description, address, tags, flags) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.BestDescription(), rec.Address,
		strings.Join(rec.Tags, " "), strings.Join(rec.Flags, " "),
	); err != nil {
		return eris.Wrapf(err, "searchindex: insert fts %s", rec.ID)
	}

	return eris.Wrap(tx.Commit(), "searchindex: commit")
}

// SearchByFlags matches any of the flags in the FTS flags column, filtered by
// city when non-empty.
func (s *SQLiteIndex) SearchByFlags(ctx context.Context, flags []string, city string, limit int) ([]model.RawRecord, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	terms := make([]string, 0, len(flags))
	for _, flag := range flags {
		flag = strings.ToLower(strings.TrimSpace(flag))
		if flag != "" {
			terms = append(terms, `flags:"`+flag+`"`)
		}
	}
	if len(terms) == 0 {
		return nil, nil
	}
	query := strings.Join(terms, " OR ")

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.data
		 FROM places_fts f
		 JOIN places p ON p.id = f.id
		 WHERE places_fts MATCH ? AND (? = '' OR p.city = ?)
		 LIMIT ?`,
		query, strings.ToLower(city), strings.ToLower(city), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "searchindex: search by flags")
	}
	defer rows.Close()

	var out []model.RawRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "searchindex: scan row")
		}
		var rec model.RawRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, eris.Wrap(err, "searchindex: unmarshal record")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "searchindex: iterate rows")
}

// Optimize merges the FTS b-trees and reclaims free pages. Safe to run at
// any time.
func (s *SQLiteIndex) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO places_fts(places_fts) VALUES('optimize')`); err != nil {
		return eris.Wrap(err, "searchindex: fts optimize")
	}
	if _, err := s.db.ExecContext(ctx, `PRAGMA incremental_vacuum`); err != nil {
		return eris.Wrap(err, "searchindex: vacuum")
	}
	return nil
}

// Count returns the number of indexed records.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM places`).Scan(&n)
	return n, eris.Wrap(err, "searchindex: count")
}
