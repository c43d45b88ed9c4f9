// CLAUDE:SUMMARY SQLite persistence of revive label entries: save, load, list, delete, bulk export/import against a Controller.
// Package archive persists revive label entries in SQLite, so a label
// store can outlive the process: Export writes every label of a
// Controller, Import loads an archive back into one.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/hazyhaar/domstate/revive"
)

// ErrNotFound is returned when no entry is archived under a label.
var ErrNotFound = errors.New("archive: label not found")

// Archive is a label → entry table.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

type config struct {
	busyTimeout time.Duration
	logger      *slog.Logger
}

// Option configures Open.
type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout. Default: 10s.
func WithBusyTimeout(d time.Duration) Option { return func(c *config) { c.busyTimeout = d } }

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// Open opens (creating if needed) the archive at path.
func Open(path string, opts ...Option) (*Archive, error) {
	cfg := config{busyTimeout: 10 * time.Second, logger: slog.Default()}
	for _, o := range opts {
		o(&cfg)
	}
	db, err := openDB(path, cfg.busyTimeout)
	if err != nil {
		return nil, err
	}
	return &Archive{db: db, logger: cfg.logger, now: time.Now}, nil
}

// OpenMemory opens an in-memory archive for tests. All queries share one
// connection, since each ":memory:" connection is its own database.
func OpenMemory(t testing.TB, opts ...Option) *Archive {
	t.Helper()
	a, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("archive.OpenMemory: %v", err)
	}
	a.db.SetMaxOpenConns(1)
	t.Cleanup(func() { a.Close() })
	return a
}

// Close closes the database.
func (a *Archive) Close() error { return a.db.Close() }

// Save writes e under label, replacing any previous entry.
func (a *Archive) Save(ctx context.Context, label string, e revive.Entry) error {
	return runTx(ctx, a.db, func(tx *sql.Tx) error {
		return a.save(ctx, tx, label, e)
	})
}

func (a *Archive) save(ctx context.Context, tx *sql.Tx, label string, e revive.Entry) error {
	if label == "" {
		return fmt.Errorf("archive: save: empty label")
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("archive: save %q: marshal: %w", label, err)
	}
	kind := "one"
	if e.IsBatch() {
		kind = "many"
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO revive_labels (label, kind, payload, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(label) DO UPDATE SET kind = excluded.kind, payload = excluded.payload, updated_at = excluded.updated_at`,
		label, kind, string(payload), a.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("archive: save %q: %w", label, err)
	}
	return nil
}

// Load reads the entry archived under label.
func (a *Archive) Load(ctx context.Context, label string) (revive.Entry, error) {
	var kind, payload string
	err := a.db.QueryRowContext(ctx,
		`SELECT kind, payload FROM revive_labels WHERE label = ?`, label).Scan(&kind, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return revive.Entry{}, fmt.Errorf("%w: %q", ErrNotFound, label)
	}
	if err != nil {
		return revive.Entry{}, fmt.Errorf("archive: load %q: %w", label, err)
	}
	return decode(label, kind, payload)
}

func decode(label, kind, payload string) (revive.Entry, error) {
	var e revive.Entry
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return revive.Entry{}, fmt.Errorf("archive: decode %q: %w", label, err)
	}
	if (kind == "many") != e.IsBatch() {
		return revive.Entry{}, fmt.Errorf("archive: decode %q: kind %s does not match payload", label, kind)
	}
	return e, nil
}

// Labels lists archived labels, sorted.
func (a *Archive) Labels(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT label FROM revive_labels ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("archive: labels: %w", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("archive: labels: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// Delete removes label from the archive.
func (a *Archive) Delete(ctx context.Context, label string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM revive_labels WHERE label = ?`, label)
	if err != nil {
		return fmt.Errorf("archive: delete %q: %w", label, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, label)
	}
	return nil
}

// Export makes the archive mirror c: rows for labels c no longer holds are
// deleted and every label of c is saved, in one transaction. It returns how
// many labels were written.
func (a *Archive) Export(ctx context.Context, c *revive.Controller) (int, error) {
	n := 0
	err := runTx(ctx, a.db, func(tx *sql.Tx) error {
		n = 0
		if _, err := tx.ExecContext(ctx, `DELETE FROM revive_labels`); err != nil {
			return fmt.Errorf("archive: export: %w", err)
		}
		for _, l := range c.Labels() {
			e, ok := c.Lookup(l)
			if !ok {
				continue
			}
			if err := a.save(ctx, tx, l, e); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	a.logger.Info("archive: exported", "labels", n)
	return n, nil
}

// Import stores every archived label into c, overwriting labels c already
// holds. Rows that fail to decode are logged and skipped.
func (a *Archive) Import(ctx context.Context, c *revive.Controller) (int, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT label, kind, payload FROM revive_labels ORDER BY label`)
	if err != nil {
		return 0, fmt.Errorf("archive: import: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var label, kind, payload string
		if err := rows.Scan(&label, &kind, &payload); err != nil {
			return n, fmt.Errorf("archive: import: %w", err)
		}
		e, err := decode(label, kind, payload)
		if err != nil {
			a.logger.Warn("archive: import skipped row", "label", label, "error", err)
			continue
		}
		c.Store(label, e)
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("archive: import: %w", err)
	}
	a.logger.Info("archive: imported", "labels", n)
	return n, nil
}
