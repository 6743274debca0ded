package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/starford/semwiki/internal/dataitem"
)

// ErrDuplicatePage is returned by UpdatePage when another path already
// stores the same page.
var ErrDuplicatePage = errors.New("sqlstore: duplicate page")

// Fact is one (subject, property, value) triple of a page.
type Fact struct {
	// Subject is the page itself or one of its subobjects.
	Subject dataitem.WikiPage
	// Property is the property key; it is stored as given.
	Property string
	Value    dataitem.DataItem
}

// PageData is the full semantic content of one vault page.
type PageData struct {
	Path     string
	Page     dataitem.WikiPage
	Checksum string
	Facts    []Fact
}

// UpdatePage replaces the page registry entry and every fact of the page
// and its subobjects within a transaction, bumping the page revision.
func (s *Store) UpdatePage(ctx context.Context, pd PageData) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	page := pd.Page.Page()
	var owner string
	err = tx.QueryRowContext(ctx, `SELECT path FROM pages WHERE namespace = ? AND title = ?`,
		page.Namespace(), page.DBKey()).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("sqlstore: find page owner: %w", err)
	case owner != pd.Path:
		return fmt.Errorf("%w: %s is already stored from %s", ErrDuplicatePage, pd.Path, owner)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pages (path, namespace, title, checksum, revision, updated_at)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(path) DO UPDATE SET
			namespace  = excluded.namespace,
			title      = excluded.title,
			checksum   = excluded.checksum,
			revision   = pages.revision + 1,
			updated_at = excluded.updated_at
	`, pd.Path, page.Namespace(), page.DBKey(), pd.Checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sqlstore: upsert page: %w", err)
	}

	if err := deleteFacts(ctx, tx, page); err != nil {
		return err
	}

	for _, f := range pd.Facts {
		if err := insertFact(ctx, tx, f); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeletePage removes a page from the registry together with its facts.
// Object ids are kept so that references from other pages stay valid.
func (s *Store) DeletePage(ctx context.Context, path string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var ns int
	var title string
	err = tx.QueryRowContext(ctx, `SELECT namespace, title FROM pages WHERE path = ?`, path).Scan(&ns, &title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sqlstore: find page: %w", err)
	}
	if err := deleteFacts(ctx, tx, dataitem.NewWikiPage(title, ns, "", "")); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE path = ?`, path); err != nil {
		return fmt.Errorf("sqlstore: delete page: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a page, or "" if not found.
func (s *Store) GetChecksum(ctx context.Context, path string) (string, error) {
	var cs string
	err := s.conn.QueryRowContext(ctx, `SELECT checksum FROM pages WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlstore: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every registered page.
func (s *Store) AllChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT path, checksum FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// PageRevision returns the revision counter of a page, 0 if unknown.
func (s *Store) PageRevision(ctx context.Context, page dataitem.WikiPage) (int, error) {
	var rev int
	err := s.conn.QueryRowContext(ctx, `SELECT revision FROM pages WHERE namespace = ? AND title = ?`,
		page.Namespace(), page.DBKey()).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlstore: revision: %w", err)
	}
	return rev, nil
}

// PropertyValues returns the values of property for subject in insertion
// order. Unknown subjects yield no values.
func (s *Store) PropertyValues(ctx context.Context, subject dataitem.WikiPage, property dataitem.Property) ([]dataitem.DataItem, error) {
	sid, ok, err := lookupID(ctx, s.conn, subject)
	if err != nil || !ok {
		return nil, err
	}

	if def := fixedTableFor(property.Key()); def != nil {
		return scanValues(ctx, s.conn,
			fmt.Sprintf(`SELECT %s FROM %s WHERE s_id = ? ORDER BY rowid`, def.ValueField, def.Name), sid,
			func(raw string) dataitem.DataItem { return dataitem.NewBlob(raw) })
	}

	pid, ok, err := lookupID(ctx, s.conn, property.Page())
	if err != nil || !ok {
		return nil, err
	}

	var out []dataitem.DataItem
	blobs, err := scanValues(ctx, s.conn, `SELECT o_blob FROM smw_di_blob WHERE s_id = ? AND p_id = ? ORDER BY rowid`,
		sid, func(raw string) dataitem.DataItem { return dataitem.NewBlob(raw) }, pid)
	if err != nil {
		return nil, err
	}
	out = append(out, blobs...)

	nums, err := scanValues(ctx, s.conn, `SELECT o_serialized FROM smw_di_number WHERE s_id = ? AND p_id = ? ORDER BY rowid`,
		sid, func(raw string) dataitem.DataItem {
			f, _ := strconv.ParseFloat(raw, 64)
			return dataitem.NewNumber(f)
		}, pid)
	if err != nil {
		return nil, err
	}
	out = append(out, nums...)

	rows, err := s.conn.QueryContext(ctx, `
		SELECT o.smw_title, o.smw_namespace, o.smw_iw, o.smw_subobject
		FROM smw_di_wikipage AS w
		INNER JOIN smw_object_ids AS o ON o.smw_id = w.o_id
		WHERE w.s_id = ? AND w.p_id = ?
		ORDER BY w.rowid
	`, sid, pid)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: wikipage values: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var title, iw, sub string
		var ns int
		if err := rows.Scan(&title, &ns, &iw, &sub); err != nil {
			return nil, err
		}
		out = append(out, dataitem.NewWikiPage(title, ns, iw, sub))
	}
	return out, rows.Err()
}

// DeclaredType returns the type id declared on the property page, if any.
func (s *Store) DeclaredType(ctx context.Context, property dataitem.Property) (string, bool, error) {
	vals, err := s.PropertyValues(ctx, property.Page(), dataitem.MustProperty(dataitem.KeyType))
	if err != nil || len(vals) == 0 {
		return "", false, err
	}
	return vals[len(vals)-1].Serialization(), true, nil
}

func fixedTableFor(key string) *TableDefinition {
	for i := range propertyTables {
		if propertyTables[i].FixedProperty == key {
			def := propertyTables[i]
			return &def
		}
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func lookupID(ctx context.Context, q queryer, p dataitem.WikiPage) (int64, bool, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		SELECT smw_id FROM smw_object_ids
		WHERE smw_title = ? AND smw_namespace = ? AND smw_iw = ? AND smw_subobject = ?
	`, p.DBKey(), p.Namespace(), p.Interwiki(), p.SubobjectName()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("sqlstore: lookup id: %w", err)
	}
	return id, true, nil
}

func ensureID(ctx context.Context, tx *sql.Tx, p dataitem.WikiPage) (int64, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO smw_object_ids (smw_title, smw_namespace, smw_iw, smw_subobject)
		VALUES (?, ?, ?, ?)
	`, p.DBKey(), p.Namespace(), p.Interwiki(), p.SubobjectName())
	if err != nil {
		return 0, fmt.Errorf("sqlstore: insert id: %w", err)
	}
	id, _, err := lookupID(ctx, tx, p)
	return id, err
}

func deleteFacts(ctx context.Context, tx *sql.Tx, page dataitem.WikiPage) error {
	const subjects = `SELECT smw_id FROM smw_object_ids WHERE smw_title = ? AND smw_namespace = ? AND smw_iw = ?`
	for i := range propertyTables {
		q := fmt.Sprintf(`DELETE FROM %s WHERE s_id IN (%s)`, propertyTables[i].Name, subjects)
		if _, err := tx.ExecContext(ctx, q, page.DBKey(), page.Namespace(), page.Interwiki()); err != nil {
			return fmt.Errorf("sqlstore: clear %s: %w", propertyTables[i].Name, err)
		}
	}
	return nil
}

func insertFact(ctx context.Context, tx *sql.Tx, f Fact) error {
	sid, err := ensureID(ctx, tx, f.Subject)
	if err != nil {
		return err
	}

	if def := fixedTableFor(f.Property); def != nil {
		q := fmt.Sprintf(`INSERT INTO %s (s_id, %s) VALUES (?, ?)`, def.Name, def.ValueField)
		if _, err := tx.ExecContext(ctx, q, sid, f.Value.Serialization()); err != nil {
			return fmt.Errorf("sqlstore: insert %s: %w", def.Name, err)
		}
		return nil
	}

	pid, err := ensureID(ctx, tx, dataitem.NewWikiPage(f.Property, dataitem.NSProperty, "", ""))
	if err != nil {
		return err
	}

	switch v := f.Value.(type) {
	case dataitem.WikiPage:
		oid, err := ensureID(ctx, tx, v)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO smw_di_wikipage (s_id, p_id, o_id) VALUES (?, ?, ?)`, sid, pid, oid)
		if err != nil {
			return fmt.Errorf("sqlstore: insert wikipage value: %w", err)
		}
	case dataitem.Number:
		_, err = tx.ExecContext(ctx, `INSERT INTO smw_di_number (s_id, p_id, o_serialized, o_sortkey) VALUES (?, ?, ?, ?)`,
			sid, pid, v.Serialization(), v.Float())
		if err != nil {
			return fmt.Errorf("sqlstore: insert number value: %w", err)
		}
	default:
		_, err = tx.ExecContext(ctx, `INSERT INTO smw_di_blob (s_id, p_id, o_blob) VALUES (?, ?, ?)`,
			sid, pid, f.Value.Serialization())
		if err != nil {
			return fmt.Errorf("sqlstore: insert blob value: %w", err)
		}
	}
	return nil
}

func scanValues(ctx context.Context, q queryer, query string, sid int64, conv func(string) dataitem.DataItem, extra ...any) ([]dataitem.DataItem, error) {
	args := append([]any{sid}, extra...)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: values: %w", err)
	}
	defer rows.Close()
	var out []dataitem.DataItem
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, conv(raw))
	}
	return out, rows.Err()
}
