package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrLabelBound is returned when an action is created for, or moved to, a
// gesture label that already has one. Each label fires at most one action.
var ErrLabelBound = errors.New("gesture label already bound")

// Action binds a gesture label to a plugin action.
type Action struct {
	ID         string
	Label      string
	PluginName string
	ActionName string
	Config     json.RawMessage
	Enabled    bool
	CreatedAt  time.Time
}

const actionColumns = `id, label, plugin_name, action_name, config, enabled, created_at`

// ActionRepository stores the label-to-action bindings. The label column is
// UNIQUE, so the database settles concurrent binds of the same label.
type ActionRepository struct {
	db *sql.DB
}

// Actions returns the action repository for this store.
func (s *Store) Actions() *ActionRepository {
	return &ActionRepository{db: s.db}
}

// Create binds a.Label to a plugin action. It fails with ErrLabelBound if
// the label already has an action.
func (r *ActionRepository) Create(a *Action) error {
	a.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO actions (`+actionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Label, a.PluginName, a.ActionName, configText(a.Config), boolInt(a.Enabled), a.CreatedAt,
	)
	return labelConflict(err, a.Label)
}

// GetByID retrieves an action by its ID.
func (r *ActionRepository) GetByID(id string) (*Action, error) {
	a, err := scanAction(r.db.QueryRow(`SELECT `+actionColumns+` FROM actions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// GetByLabel returns the action bound to a gesture label, or nil, nil when
// the label is unbound. The event dispatcher calls it once per gesture event.
func (r *ActionRepository) GetByLabel(label string) (*Action, error) {
	a, err := scanAction(r.db.QueryRow(`SELECT `+actionColumns+` FROM actions WHERE label = ?`, label))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// List returns every binding ordered by label.
func (r *ActionRepository) List() ([]*Action, error) {
	rows, err := r.db.Query(`SELECT ` + actionColumns + ` FROM actions ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

// Update rewrites an existing binding. Moving it to a label that is already
// bound fails with ErrLabelBound.
func (r *ActionRepository) Update(a *Action) error {
	result, err := r.db.Exec(
		`UPDATE actions SET label = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		a.Label, a.PluginName, a.ActionName, configText(a.Config), boolInt(a.Enabled), a.ID,
	)
	if err != nil {
		return labelConflict(err, a.Label)
	}

	return requireRow(result)
}

// Delete removes an action by its ID.
func (r *ActionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM actions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	return requireRow(result)
}

func scanAction(row scanner) (*Action, error) {
	a := &Action{}
	var config string
	var enabled int

	if err := row.Scan(&a.ID, &a.Label, &a.PluginName, &a.ActionName, &config, &enabled, &a.CreatedAt); err != nil {
		return nil, err
	}

	a.Config = json.RawMessage(config)
	a.Enabled = enabled != 0
	return a, nil
}

// labelConflict maps a UNIQUE(label) violation to ErrLabelBound.
func labelConflict(err error, label string) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return fmt.Errorf("%w: %s", ErrLabelBound, label)
	}
	return err
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func configText(c json.RawMessage) string {
	if len(c) == 0 {
		return "{}"
	}
	return string(c)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
