package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/fingerspell/internal/gesture"
)

// Lesson represents a lesson plan header stored in the database.
type Lesson struct {
	ID          string
	Name        string
	Description string
	Trigger     *gesture.Rule
	Hold        time.Duration
	Feedback    time.Duration
	Builtin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LessonGesture is one ordered target of a lesson. A nil Hold uses the
// lesson's hold threshold.
type LessonGesture struct {
	Position int
	Name     string
	Rule     gesture.Rule
	Hold     *time.Duration
}

// LessonRepository provides CRUD operations for lessons.
type LessonRepository struct {
	db *sql.DB
}

// Lessons returns the lesson repository for this store.
func (s *Store) Lessons() *LessonRepository {
	return &LessonRepository{db: s.db}
}

const lessonColumns = `id, name, description, trigger_rule, hold_ms, feedback_ms, builtin, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLesson(row rowScanner) (*Lesson, error) {
	l := &Lesson{}
	var trigger sql.NullString
	var holdMs, feedbackMs int64
	var builtin int

	err := row.Scan(&l.ID, &l.Name, &l.Description, &trigger, &holdMs, &feedbackMs, &builtin, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if trigger.Valid && trigger.String != "" {
		var r gesture.Rule
		if err := json.Unmarshal([]byte(trigger.String), &r); err != nil {
			return nil, fmt.Errorf("decode trigger of lesson %s: %w", l.Name, err)
		}
		l.Trigger = &r
	}
	l.Hold = time.Duration(holdMs) * time.Millisecond
	l.Feedback = time.Duration(feedbackMs) * time.Millisecond
	l.Builtin = builtin != 0
	return l, nil
}

func encodeTrigger(r *gesture.Rule) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// Create inserts a new lesson into the database.
func (r *LessonRepository) Create(l *Lesson) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now()
	l.CreatedAt = now
	l.UpdatedAt = now

	trigger, err := encodeTrigger(l.Trigger)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO lessons (`+lessonColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.Description, trigger, l.Hold.Milliseconds(), l.Feedback.Milliseconds(),
		boolInt(l.Builtin), l.CreatedAt, l.UpdatedAt,
	)
	return err
}

// GetByID retrieves a lesson by its ID.
func (r *LessonRepository) GetByID(id string) (*Lesson, error) {
	l, err := scanLesson(r.db.QueryRow(`SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

// GetByName retrieves a lesson by its name.
func (r *LessonRepository) GetByName(name string) (*Lesson, error) {
	l, err := scanLesson(r.db.QueryRow(`SELECT `+lessonColumns+` FROM lessons WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

// List retrieves all lessons, built-in lessons first.
func (r *LessonRepository) List() ([]*Lesson, error) {
	rows, err := r.db.Query(`SELECT ` + lessonColumns + ` FROM lessons ORDER BY builtin DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []*Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lessons, nil
}

// Update updates an existing lesson in the database.
func (r *LessonRepository) Update(l *Lesson) error {
	l.UpdatedAt = time.Now()

	trigger, err := encodeTrigger(l.Trigger)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(
		`UPDATE lessons SET name = ?, description = ?, trigger_rule = ?, hold_ms = ?, feedback_ms = ?, updated_at = ?
		 WHERE id = ?`,
		l.Name, l.Description, trigger, l.Hold.Milliseconds(), l.Feedback.Milliseconds(), l.UpdatedAt, l.ID,
	)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// Delete removes a lesson and its gestures from the database by its ID.
func (r *LessonRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM lessons WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// SetGestures replaces all gestures of a lesson.
func (r *LessonRepository) SetGestures(lessonID string, gestures []LessonGesture) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM lesson_gestures WHERE lesson_id = ?`, lessonID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO lesson_gestures (lesson_id, position, name, rule, hold_ms) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, g := range gestures {
		rule, err := json.Marshal(g.Rule)
		if err != nil {
			return err
		}
		var hold sql.NullInt64
		if g.Hold != nil {
			hold = sql.NullInt64{Int64: g.Hold.Milliseconds(), Valid: true}
		}
		if _, err := stmt.Exec(lessonID, i, g.Name, string(rule), hold); err != nil {
			return fmt.Errorf("insert gesture %s: %w", g.Name, err)
		}
	}

	return tx.Commit()
}

// GetGestures returns the gestures of a lesson in order.
func (r *LessonRepository) GetGestures(lessonID string) ([]LessonGesture, error) {
	rows, err := r.db.Query(
		`SELECT position, name, rule, hold_ms FROM lesson_gestures
		 WHERE lesson_id = ? ORDER BY position`,
		lessonID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gestures []LessonGesture
	for rows.Next() {
		var g LessonGesture
		var rule string
		var hold sql.NullInt64

		if err := rows.Scan(&g.Position, &g.Name, &rule, &hold); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(rule), &g.Rule); err != nil {
			return nil, fmt.Errorf("decode rule of gesture %s: %w", g.Name, err)
		}
		if hold.Valid {
			d := time.Duration(hold.Int64) * time.Millisecond
			g.Hold = &d
		}
		gestures = append(gestures, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return gestures, nil
}

// Plan assembles the named lesson into a gesture plan.
func (r *LessonRepository) Plan(name string) (gesture.Plan, error) {
	l, err := r.GetByName(name)
	if err != nil {
		return gesture.Plan{}, err
	}
	gestures, err := r.GetGestures(l.ID)
	if err != nil {
		return gesture.Plan{}, err
	}

	plan := gesture.Plan{
		Name:        l.Name,
		Description: l.Description,
		Trigger:     l.Trigger,
		Gestures:    make([]gesture.Gesture, len(gestures)),
		Timing: gesture.Timing{
			Hold:     l.Hold,
			Feedback: l.Feedback,
		},
	}
	for i, g := range gestures {
		plan.Gestures[i] = gesture.Gesture{Name: g.Name, Rule: g.Rule}
		if g.Hold != nil {
			if plan.Timing.Overrides == nil {
				plan.Timing.Overrides = make(map[string]time.Duration)
			}
			plan.Timing.Overrides[g.Name] = *g.Hold
		}
	}
	return plan, nil
}

// Save creates or replaces a lesson from a gesture plan.
func (r *LessonRepository) Save(plan gesture.Plan, builtin bool) (*Lesson, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	l, err := r.GetByName(plan.Name)
	switch {
	case errors.Is(err, ErrNotFound):
		l = &Lesson{Name: plan.Name, Builtin: builtin}
	case err != nil:
		return nil, err
	}
	l.Description = plan.Description
	l.Trigger = plan.Trigger
	l.Hold = plan.Timing.Hold
	l.Feedback = plan.Timing.Feedback

	if l.ID == "" {
		err = r.Create(l)
	} else {
		err = r.Update(l)
	}
	if err != nil {
		return nil, err
	}

	gestures := make([]LessonGesture, len(plan.Gestures))
	for i, g := range plan.Gestures {
		gestures[i] = LessonGesture{Position: i, Name: g.Name, Rule: g.Rule}
		if d, ok := plan.Timing.Overrides[g.Name]; ok {
			gestures[i].Hold = &d
		}
	}
	if err := r.SetGestures(l.ID, gestures); err != nil {
		return nil, err
	}
	return l, nil
}

// Seed stores each plan that is not in the database yet. Existing lessons
// are left alone so user edits survive restarts.
func (r *LessonRepository) Seed(plans []gesture.Plan) (int, error) {
	added := 0
	for _, p := range plans {
		_, err := r.GetByName(p.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return added, err
		}
		if _, err := r.Save(p, true); err != nil {
			return added, fmt.Errorf("seed lesson %s: %w", p.Name, err)
		}
		added++
	}
	return added, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func expectAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
