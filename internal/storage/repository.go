package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mappa/internal/core"

	_ "modernc.org/sqlite"
)

// FileInfo describes one uploaded file as stored.
type FileInfo struct {
	Name        string    `json:"name"`
	TotalRows   int       `json:"total_rows"`
	MappedCount int       `json:"mapped_count"`
	Active      bool      `json:"active"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveSnapshot stores a file and all of its rows, replacing any previous
// content for the same name, and marks the file as the single active one.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, snap core.Snapshot) error {
	headers, err := json.Marshal(snap.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE files SET active = 0`); err != nil {
		return fmt.Errorf("deactivate files: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO files (name, headers, total_rows, active) VALUES (?, ?, ?, 1)
		 ON CONFLICT(name) DO UPDATE SET headers = excluded.headers, total_rows = excluded.total_rows, active = 1, uploaded_at = CURRENT_TIMESTAMP`,
		snap.SourceFile, string(headers), len(snap.Rows)); err != nil {
		return fmt.Errorf("save file %s: %w", snap.SourceFile, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rows WHERE file = ?`, snap.SourceFile); err != nil {
		return fmt.Errorf("clear rows for %s: %w", snap.SourceFile, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rows (file, row_index, original_data, category) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range snap.Rows {
		data, err := json.Marshal(row.Data)
		if err != nil {
			return fmt.Errorf("marshal row %d: %w", row.Index, err)
		}
		var category any
		if row.Category != nil {
			category = *row.Category
		}
		if _, err := stmt.ExecContext(ctx, snap.SourceFile, row.Index, string(data), category); err != nil {
			return fmt.Errorf("insert row %d: %w", row.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot saved",
		"source_file", snap.SourceFile,
		"row_count", len(snap.Rows))
	return nil
}

// LoadSnapshot reads one file with its rows in index order.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, name string) (core.Snapshot, error) {
	var (
		headersJSON string
		totalRows   int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT headers, total_rows FROM files WHERE name = ?`, name).
		Scan(&headersJSON, &totalRows)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, core.ErrFileNotFound
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("load file %s: %w", name, err)
	}

	snap := core.Snapshot{SourceFile: name}
	if err := json.Unmarshal([]byte(headersJSON), &snap.Headers); err != nil {
		return core.Snapshot{}, fmt.Errorf("unmarshal headers for %s: %w", name, err)
	}

	rows, err := r.queryRows(ctx,
		`SELECT file, row_index, original_data, category FROM rows WHERE file = ? ORDER BY row_index`, name)
	if err != nil {
		return core.Snapshot{}, err
	}

	snap.Rows = rows
	snap.TotalRows = len(rows)
	for _, row := range rows {
		if row.Mapped {
			snap.MappedCount++
		}
	}
	return snap, nil
}

// LoadActiveSnapshot reads the currently active file, if any.
func (r *SQLiteRepository) LoadActiveSnapshot(ctx context.Context) (core.Snapshot, bool, error) {
	var name string
	err := r.db.QueryRowContext(ctx, `SELECT name FROM files WHERE active = 1`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, false, nil
	}
	if err != nil {
		return core.Snapshot{}, false, fmt.Errorf("find active file: %w", err)
	}

	snap, err := r.LoadSnapshot(ctx, name)
	if err != nil {
		return core.Snapshot{}, false, err
	}
	return snap, true, nil
}

// SetActiveFile marks the named file as active and every other file as
// inactive.
func (r *SQLiteRepository) SetActiveFile(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE files SET active = 0`); err != nil {
		return fmt.Errorf("deactivate files: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE files SET active = 1 WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("activate file %s: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate file %s: %w", name, err)
	}
	if affected == 0 {
		return core.ErrFileNotFound
	}
	return tx.Commit()
}

// UpdateRowCategory persists a category assignment. The exported flag is
// reset so the row is picked up again by the export worker.
func (r *SQLiteRepository) UpdateRowCategory(ctx context.Context, file string, index int, category string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rows SET category = ?, exported = 0 WHERE file = ? AND row_index = ?`,
		category, file, index)
	if err != nil {
		return fmt.Errorf("update row %d in %s: %w", index, file, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update row %d in %s: %w", index, file, err)
	}
	if affected == 0 {
		return core.ErrRowNotFound
	}
	return nil
}

// DeleteFile removes a file and all of its rows.
func (r *SQLiteRepository) DeleteFile(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rows WHERE file = ?`, name); err != nil {
		return fmt.Errorf("delete rows for %s: %w", name, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete file %s: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete file %s: %w", name, err)
	}
	if affected == 0 {
		return core.ErrFileNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	slog.InfoContext(ctx, "File deleted", "source_file", name)
	return nil
}

// ListFiles returns every stored file with its progress counters, most
// recent upload first.
func (r *SQLiteRepository) ListFiles(ctx context.Context) ([]FileInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT f.name, f.total_rows, f.active, f.uploaded_at,
		        (SELECT COUNT(*) FROM rows WHERE file = f.name AND category IS NOT NULL)
		 FROM files f ORDER BY f.uploaded_at DESC, f.name`)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []FileInfo
	for rows.Next() {
		var (
			info   FileInfo
			active int
		)
		if err := rows.Scan(&info.Name, &info.TotalRows, &active, &info.UploadedAt, &info.MappedCount); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		info.Active = active == 1
		files = append(files, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// LoadAllMappedRows returns every mapped row across all files, ordered
// by file and index.
func (r *SQLiteRepository) LoadAllMappedRows(ctx context.Context) ([]core.Row, error) {
	return r.queryRows(ctx,
		`SELECT file, row_index, original_data, category FROM rows WHERE category IS NOT NULL ORDER BY file, row_index`)
}

// GetRow reads a single row by file and index.
func (r *SQLiteRepository) GetRow(ctx context.Context, file string, index int) (core.Row, error) {
	rows, err := r.queryRows(ctx,
		`SELECT file, row_index, original_data, category FROM rows WHERE file = ? AND row_index = ?`, file, index)
	if err != nil {
		return core.Row{}, err
	}
	if len(rows) == 0 {
		return core.Row{}, core.ErrRowNotFound
	}
	return rows[0], nil
}

// ListUnexported returns mapped rows not yet delivered to the export
// backend, oldest first.
func (r *SQLiteRepository) ListUnexported(ctx context.Context, limit int) ([]core.Row, error) {
	return r.queryRows(ctx,
		`SELECT file, row_index, original_data, category FROM rows
		 WHERE category IS NOT NULL AND exported = 0 ORDER BY file, row_index LIMIT ?`, limit)
}

// MarkExported records that a row reached the export backend.
func (r *SQLiteRepository) MarkExported(ctx context.Context, file string, index int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rows SET exported = 1 WHERE file = ? AND row_index = ?`, file, index)
	if err != nil {
		return fmt.Errorf("mark row %d in %s exported: %w", index, file, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark row %d in %s exported: %w", index, file, err)
	}
	if affected == 0 {
		return core.ErrRowNotFound
	}
	return nil
}

// LoadCategories returns the persisted registry in order.
func (r *SQLiteRepository) LoadCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return names, nil
}

// SaveCategories replaces the persisted registry with the given names in
// the given order.
func (r *SQLiteRepository) SaveCategories(ctx context.Context, names []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO categories (position, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare category insert: %w", err)
	}
	defer stmt.Close()
	for i, name := range names {
		if _, err := stmt.ExecContext(ctx, i, name); err != nil {
			return fmt.Errorf("insert category %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit categories: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) queryRows(ctx context.Context, query string, args ...any) ([]core.Row, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []core.Row
	for rows.Next() {
		var (
			row      core.Row
			dataJSON string
			category sql.NullString
		)
		if err := rows.Scan(&row.SourceFile, &row.Index, &dataJSON, &category); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(dataJSON), &row.Data); err != nil {
			return nil, fmt.Errorf("unmarshal row %d: %w", row.Index, err)
		}
		if category.Valid {
			name := category.String
			row.Category = &name
			row.Mapped = true
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	return out, nil
}
