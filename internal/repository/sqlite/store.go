// Package sqlite provides a SQLite-backed Store for local development and
// tests.
//
// Times are stored as UTC unix milliseconds and page metadata as a JSON array.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/deppfellow/magnetite/internal/errs"
	"github.com/deppfellow/magnetite/internal/model"
	"github.com/deppfellow/magnetite/internal/repository"
	"github.com/deppfellow/magnetite/internal/repository/sqlite/migrations"
	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists pages and admin users in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ repository.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", handleError(err))
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return handleError(s.sqlDB.PingContext(ctx))
}

func (s *Store) GetPage(ctx context.Context, path string) (model.Page, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT path, created_at, created_by, modified_at, modified_by, published, metadata, body
		   FROM pages
		  WHERE path = ?`,
		path,
	)

	var (
		page       model.Page
		createdAt  int64
		modifiedAt int64
		metadata   string
	)
	err := row.Scan(
		&page.Path,
		&createdAt,
		&page.CreatedBy,
		&modifiedAt,
		&page.ModifiedBy,
		&page.Published,
		&metadata,
		&page.Body,
	)
	if err != nil {
		return model.Page{}, fmt.Errorf("get page %q: %w", path, handleError(err))
	}

	if err := json.Unmarshal([]byte(metadata), &page.Metadata); err != nil {
		return model.Page{}, fmt.Errorf("decode page %q metadata: %w", path, err)
	}
	if page.Metadata == nil {
		page.Metadata = []string{}
	}
	page.CreatedAt = fromMillis(createdAt)
	page.ModifiedAt = fromMillis(modifiedAt)
	return page, nil
}

func (s *Store) UpdatePage(ctx context.Context, page model.Page) error {
	metadata, err := encodeMetadata(page.Metadata)
	if err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE pages
		    SET created_at = ?, created_by = ?, modified_at = ?, modified_by = ?,
		        published = ?, metadata = ?, body = ?
		  WHERE path = ?`,
		toMillis(page.CreatedAt),
		page.CreatedBy,
		toMillis(page.ModifiedAt),
		page.ModifiedBy,
		page.Published,
		metadata,
		page.Body,
		page.Path,
	)
	if err != nil {
		return fmt.Errorf("update page %q: %w", page.Path, handleError(err))
	}
	return requireRow(res, fmt.Sprintf("update page %q", page.Path))
}

func (s *Store) InsertPage(ctx context.Context, page model.Page) error {
	metadata, err := encodeMetadata(page.Metadata)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO pages (path, created_at, created_by, modified_at, modified_by, published, metadata, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		page.Path,
		toMillis(page.CreatedAt),
		page.CreatedBy,
		toMillis(page.ModifiedAt),
		page.ModifiedBy,
		page.Published,
		metadata,
		page.Body,
	)
	if err != nil {
		return fmt.Errorf("insert page %q: %w", page.Path, handleError(err))
	}
	return nil
}

func (s *Store) DeletePage(ctx context.Context, path string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM pages WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete page %q: %w", path, handleError(err))
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (model.AdminUser, error) {
	var user model.AdminUser

	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, username, email, enabled FROM admins WHERE id = ?`, id,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Enabled)
	if err != nil {
		return model.AdminUser{}, fmt.Errorf("get admin %s: %w", id, handleError(err))
	}
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user model.AdminUser) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE admins SET username = ?, email = ?, enabled = ? WHERE id = ?`,
		user.Username, user.Email, user.Enabled, user.ID,
	)
	if err != nil {
		return fmt.Errorf("update admin %s: %w", user.ID, handleError(err))
	}
	return requireRow(res, fmt.Sprintf("update admin %s", user.ID))
}

func (s *Store) InsertUser(ctx context.Context, user model.AdminUser) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO admins (id, username, email, enabled) VALUES (?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.Enabled,
	)
	if err != nil {
		return fmt.Errorf("insert admin %s: %w", user.ID, handleError(err))
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM admins WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete admin %s: %w", id, handleError(err))
	}
	return nil
}

func encodeMetadata(metadata []string) (string, error) {
	if metadata == nil {
		metadata = []string{}
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("encode page metadata: %w", err)
	}
	return string(b), nil
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	return nil
}

// handleError maps driver errors onto the errs sentinels, keeping the
// driver error in the chain.
func handleError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", errs.ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", errs.ErrStoreUnavailable, err)
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%w: %w", errs.ErrConflict, err)
		}
		// Primary result code lives in the low byte of extended codes.
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED, sqlite3lib.SQLITE_CANTOPEN, sqlite3lib.SQLITE_IOERR:
			return fmt.Errorf("%w: %w", errs.ErrStoreUnavailable, err)
		}
	}
	return err
}

const migrationTable = "schema_migrations"

// applyMigrations executes every embedded .sql file at most once, in name
// order, recording applied files in schema_migrations.
func applyMigrations(ctx context.Context, sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := `CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`
	if _, err := sqlDB.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, name := range files {
		var applied int
		err := sqlDB.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM `+migrationTable+` WHERE name = ?`, name,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}

		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := sqlDB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
			name, toMillis(time.Now()),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}
