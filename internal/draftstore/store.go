package draftstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"keepsake/internal/capsule"
	"keepsake/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing draft databases must be cleared after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// DraftInfo is the listing row for a stored draft.
type DraftInfo struct {
	Key       string
	CapsuleID string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store manages draft persistence backed by SQLite. A file lock beside the
// database enforces a single writing process.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the draft database under dir and verifies
// the schema version.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure drafts dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, "drafts.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire drafts lock: %w", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConflict, "draftstore", "open",
			"another process owns the draft database", nil)
	}

	dbPath := filepath.Join(dir, "drafts.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection and releases the process lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete the draft database)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Put upserts a draft. An empty key creates a new draft under a generated
// key; the key in use is returned either way.
func (s *Store) Put(ctx context.Context, key string, doc capsule.Document) (string, error) {
	payload, err := capsule.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if key == "" {
		key = uuid.NewString()
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO drafts (key, capsule_id, title, payload, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			key, doc.ID, doc.Title, string(payload), now, now,
		)
		if err != nil {
			return "", fmt.Errorf("insert draft: %w", err)
		}
		return key, nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET capsule_id = ?, title = ?, payload = ?, updated_at = ? WHERE key = ?`,
		doc.ID, doc.Title, string(payload), now, key,
	)
	if err != nil {
		return "", fmt.Errorf("update draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO drafts (key, capsule_id, title, payload, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			key, doc.ID, doc.Title, string(payload), now, now,
		)
		if err != nil {
			return "", fmt.Errorf("insert draft: %w", err)
		}
	}
	return key, nil
}

// Get loads the draft stored under key.
func (s *Store) Get(ctx context.Context, key string) (capsule.Document, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM drafts WHERE key = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return capsule.Document{}, services.Wrap(services.ErrNotFound, "draftstore", "get",
			fmt.Sprintf("draft %s", key), nil)
	}
	if err != nil {
		return capsule.Document{}, fmt.Errorf("query draft: %w", err)
	}
	doc, err := capsule.Unmarshal([]byte(payload))
	if err != nil {
		return capsule.Document{}, fmt.Errorf("decode draft %s: %w", key, err)
	}
	return doc, nil
}

// List returns all drafts, most recently updated first.
func (s *Store) List(ctx context.Context) ([]DraftInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, capsule_id, title, created_at, updated_at FROM drafts ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()

	var infos []DraftInfo
	for rows.Next() {
		var info DraftInfo
		var createdAt, updatedAt string
		if err := rows.Scan(&info.Key, &info.CapsuleID, &info.Title, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan draft row: %w", err)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drafts: %w", err)
	}
	return infos, nil
}

// Delete removes the draft stored under key. Deleting a missing draft is not
// an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
