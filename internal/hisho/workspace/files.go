package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// File is a document or folder in an owner's drive.
type File struct {
	ID         string
	Owner      string
	Name       string
	ParentID   string
	Folder     bool
	MimeType   string
	Size       int64
	ModifiedAt time.Time
}

const fileColumns = `id, owner, name, COALESCE(parent_id, ''), is_folder, mime_type, size, modified_at`

func scanFile(row interface{ Scan(...any) error }) (File, error) {
	var (
		f        File
		folder   int
		modified int64
	)
	if err := row.Scan(&f.ID, &f.Owner, &f.Name, &f.ParentID, &folder, &f.MimeType, &f.Size, &modified); err != nil {
		return File{}, err
	}
	f.Folder = folder == 1
	f.ModifiedAt = fromUnix(modified)
	return f, nil
}

func (w *Workspace) queryFiles(ctx context.Context, query string, args ...any) ([]File, error) {
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("workspace: query files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("workspace: scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SearchFiles matches text against file and folder names.
func (w *Workspace) SearchFiles(ctx context.Context, owner, text string, limit int) ([]File, error) {
	return w.queryFiles(ctx, "SELECT "+fileColumns+` FROM files
		WHERE owner = ? AND deleted = 0 AND LOWER(name) LIKE ? ESCAPE '\'
		ORDER BY modified_at DESC, id LIMIT ?`, owner, like(text), limitOr(limit, 10))
}

// RecentFiles returns non-folder files, most recently modified first.
func (w *Workspace) RecentFiles(ctx context.Context, owner string, limit int) ([]File, error) {
	return w.queryFiles(ctx, "SELECT "+fileColumns+` FROM files
		WHERE owner = ? AND deleted = 0 AND is_folder = 0
		ORDER BY modified_at DESC, id LIMIT ?`, owner, limitOr(limit, 10))
}

// GetFile returns one live file or folder.
func (w *Workspace) GetFile(ctx context.Context, owner, id string) (File, error) {
	f, err := scanFile(w.db.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE owner = ? AND id = ? AND deleted = 0", owner, id))
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, ErrNotFound
	}
	if err != nil {
		return File{}, fmt.Errorf("workspace: get file %s: %w", id, err)
	}
	return f, nil
}

// AddFile stores f.
func (w *Workspace) AddFile(ctx context.Context, f File) (File, error) {
	if f.ID == "" {
		f.ID = newID()
	}
	if f.ModifiedAt.IsZero() {
		f.ModifiedAt = w.now()
	}
	if f.Folder && f.MimeType == "" {
		f.MimeType = "folder"
	}
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO files (id, owner, name, parent_id, is_folder, mime_type, size, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Owner, f.Name, sql.NullString{String: f.ParentID, Valid: f.ParentID != ""},
		boolInt(f.Folder), f.MimeType, f.Size, unix(f.ModifiedAt))
	if err != nil {
		return File{}, fmt.Errorf("workspace: add file: %w", err)
	}
	return f, nil
}

// CreateFolder adds an empty folder under parentID ("" for the root).
func (w *Workspace) CreateFolder(ctx context.Context, owner, name, parentID string) (File, error) {
	return w.AddFile(ctx, File{Owner: owner, Name: name, ParentID: parentID, Folder: true})
}

// RenameFile changes a file's name and bumps its modification time.
func (w *Workspace) RenameFile(ctx context.Context, owner, id, name string) error {
	err := affected(w.db.ExecContext(ctx,
		"UPDATE files SET name = ?, modified_at = ? WHERE owner = ? AND id = ? AND deleted = 0",
		name, unix(w.now()), owner, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("workspace: rename file %s: %w", id, err)
	}
	return err
}

// DeleteFile trashes a file. Trashing a folder also trashes its children.
func (w *Workspace) DeleteFile(ctx context.Context, owner, id string) error {
	err := affected(w.db.ExecContext(ctx, `
		WITH RECURSIVE tree(id) AS (
			SELECT id FROM files WHERE owner = ? AND id = ? AND deleted = 0
			UNION ALL
			SELECT f.id FROM files f JOIN tree t ON f.parent_id = t.id WHERE f.owner = ?
		)
		UPDATE files SET deleted = 1 WHERE id IN (SELECT id FROM tree)`,
		owner, id, owner))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("workspace: delete file %s: %w", id, err)
	}
	return err
}
