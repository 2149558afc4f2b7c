package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// CueEvent is the feedback event a cue reacts to.
type CueEvent string

const (
	// CueConfirmed fires when a gesture is confirmed.
	CueConfirmed CueEvent = "confirmed"
	// CueCompleted fires when a session completes.
	CueCompleted CueEvent = "completed"
	// CueTarget fires when a new target gesture becomes active.
	CueTarget CueEvent = "target"
)

// Valid reports whether e is a known event.
func (e CueEvent) Valid() bool {
	switch e {
	case CueConfirmed, CueCompleted, CueTarget:
		return true
	}
	return false
}

// Cue binds a feedback event to a plugin action. An empty Gesture matches
// every gesture.
type Cue struct {
	ID         string
	Event      CueEvent
	Gesture    string
	PluginName string
	ActionName string
	Config     json.RawMessage
	Enabled    bool
	CreatedAt  time.Time
}

// CueRepository provides CRUD operations for cues.
type CueRepository struct {
	db *sql.DB
}

// Cues returns the cue repository for this store.
func (s *Store) Cues() *CueRepository {
	return &CueRepository{db: s.db}
}

const cueColumns = `id, event, gesture, plugin_name, action_name, config, enabled, created_at`

func scanCue(row rowScanner) (*Cue, error) {
	c := &Cue{}
	var event, config string
	var enabled int

	err := row.Scan(&c.ID, &event, &c.Gesture, &c.PluginName, &c.ActionName, &config, &enabled, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.Event = CueEvent(event)
	c.Config = json.RawMessage(config)
	c.Enabled = enabled != 0
	return c, nil
}

// Create inserts a new cue into the database.
func (r *CueRepository) Create(c *Cue) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now()

	config := c.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	_, err := r.db.Exec(
		`INSERT INTO cues (`+cueColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.Event), c.Gesture, c.PluginName, c.ActionName, string(config), boolInt(c.Enabled), c.CreatedAt,
	)
	return err
}

// GetByID retrieves a cue by its ID.
func (r *CueRepository) GetByID(id string) (*Cue, error) {
	c, err := scanCue(r.db.QueryRow(`SELECT `+cueColumns+` FROM cues WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// List retrieves all cues from the database.
func (r *CueRepository) List() ([]*Cue, error) {
	return r.query(`SELECT ` + cueColumns + ` FROM cues ORDER BY created_at`)
}

// Match returns the enabled cues for event and gesture, including cues bound
// to every gesture.
func (r *CueRepository) Match(event CueEvent, gestureName string) ([]*Cue, error) {
	return r.query(
		`SELECT `+cueColumns+` FROM cues
		 WHERE enabled = 1 AND event = ? AND (gesture = '' OR gesture = ?)
		 ORDER BY created_at`,
		string(event), gestureName,
	)
}

func (r *CueRepository) query(q string, args ...any) ([]*Cue, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cues []*Cue
	for rows.Next() {
		c, err := scanCue(rows)
		if err != nil {
			return nil, err
		}
		cues = append(cues, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cues, nil
}

// Update updates an existing cue in the database.
func (r *CueRepository) Update(c *Cue) error {
	config := c.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	result, err := r.db.Exec(
		`UPDATE cues SET event = ?, gesture = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		string(c.Event), c.Gesture, c.PluginName, c.ActionName, string(config), boolInt(c.Enabled), c.ID,
	)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// Delete removes a cue from the database by its ID.
func (r *CueRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM cues WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
