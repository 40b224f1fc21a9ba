package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS releases (
	name       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQLite is a file-backed ReleaseStore
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database at path, creating the file and its parent
// directory when missing.
func NewSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("path", path))
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", path))
	}
	// A single connection keeps :memory: databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping database", goerr.V("path", path))
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to create schema", goerr.V("path", path))
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Exists(ctx context.Context, name types.RepoName) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM releases WHERE name = ?`, string(name)).Scan(&n)
	if err != nil {
		return false, goerr.Wrap(err, "failed to query release", goerr.V("repo", name))
	}
	return n > 0, nil
}

func (s *SQLite) Get(ctx context.Context, name types.RepoName) (*model.Release, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM releases WHERE name = ?`, string(name)).Scan(&body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get release", goerr.V("repo", name))
	}

	var release model.Release
	if err := json.Unmarshal([]byte(body), &release); err != nil {
		return nil, goerr.Wrap(err, "failed to decode stored release", goerr.V("repo", name))
	}
	return &release, nil
}

func (s *SQLite) Put(ctx context.Context, name types.RepoName, release *model.Release) error {
	body, err := json.Marshal(release)
	if err != nil {
		return goerr.Wrap(err, "failed to encode release", goerr.V("repo", name))
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO releases (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		string(name), string(body), time.Now().UTC())
	if err != nil {
		return goerr.Wrap(err, "failed to put release", goerr.V("repo", name))
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]*model.Release, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, body FROM releases ORDER BY name`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list releases")
	}
	defer rows.Close()

	var releases []*model.Release
	for rows.Next() {
		var name, body string
		if err := rows.Scan(&name, &body); err != nil {
			return nil, goerr.Wrap(err, "failed to scan release")
		}
		var release model.Release
		if err := json.Unmarshal([]byte(body), &release); err != nil {
			return nil, goerr.Wrap(err, "failed to decode stored release", goerr.V("repo", name))
		}
		releases = append(releases, &release)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate releases")
	}
	return releases, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
