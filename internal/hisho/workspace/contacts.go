package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Contact is an address-book entry.
type Contact struct {
	ID        string
	Owner     string
	Name      string
	Email     string
	Phone     string
	Company   string
	CreatedAt time.Time
}

const contactColumns = `id, owner, name, email, phone, company, created_at`

func scanContact(row interface{ Scan(...any) error }) (Contact, error) {
	var (
		c       Contact
		created int64
	)
	if err := row.Scan(&c.ID, &c.Owner, &c.Name, &c.Email, &c.Phone, &c.Company, &created); err != nil {
		return Contact{}, err
	}
	c.CreatedAt = fromUnix(created)
	return c, nil
}

func (w *Workspace) queryContacts(ctx context.Context, query string, args ...any) ([]Contact, error) {
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("workspace: query contacts: %w", err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("workspace: scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindContacts matches text against name, email, phone and company.
func (w *Workspace) FindContacts(ctx context.Context, owner, text string, limit int) ([]Contact, error) {
	p := like(text)
	return w.queryContacts(ctx, "SELECT "+contactColumns+` FROM contacts
		WHERE owner = ? AND (LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'
		                     OR phone LIKE ? ESCAPE '\' OR LOWER(company) LIKE ? ESCAPE '\')
		ORDER BY name COLLATE NOCASE, id LIMIT ?`,
		owner, p, p, p, p, limitOr(limit, 10))
}

// ListContacts returns contacts in name order.
func (w *Workspace) ListContacts(ctx context.Context, owner string, limit int) ([]Contact, error) {
	return w.queryContacts(ctx, "SELECT "+contactColumns+
		" FROM contacts WHERE owner = ? ORDER BY name COLLATE NOCASE, id LIMIT ?", owner, limitOr(limit, 20))
}

// GetContact returns one contact.
func (w *Workspace) GetContact(ctx context.Context, owner, id string) (Contact, error) {
	c, err := scanContact(w.db.QueryRowContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE owner = ? AND id = ?", owner, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, fmt.Errorf("workspace: get contact %s: %w", id, err)
	}
	return c, nil
}

// AddContact stores c.
func (w *Workspace) AddContact(ctx context.Context, c Contact) (Contact, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = w.now()
	}
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO contacts (id, owner, name, email, phone, company, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Owner, c.Name, c.Email, c.Phone, c.Company, unix(c.CreatedAt))
	if err != nil {
		return Contact{}, fmt.Errorf("workspace: add contact: %w", err)
	}
	return c, nil
}

// DeleteContact removes a contact.
func (w *Workspace) DeleteContact(ctx context.Context, owner, id string) error {
	err := affected(w.db.ExecContext(ctx, "DELETE FROM contacts WHERE owner = ? AND id = ?", owner, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("workspace: delete contact %s: %w", id, err)
	}
	return err
}
