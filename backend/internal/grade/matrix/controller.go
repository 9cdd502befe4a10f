// Package matrix holds the editable grade grid of one subject and semester:
// the overlay of typed and accepted values over persisted scores, and the
// save engine that writes committed cells back to the store.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"schooldash/backend/internal/grade"
)

var ErrUnknownCell = errors.New("cell is not part of the grid")

// Config is everything a controller needs for one view.
type Config struct {
	Subject  grade.Subject
	Students []grade.Student
	Scores   grade.Scores
	Semester grade.Semester
	Saver    *SaveEngine
	Notify   Notifier
}

// overlay is the session-local state of an edited cell.
type overlay struct {
	draft    string
	drafting bool
	accepted grade.Score
	hasValue bool
}

// Controller owns the overlay for one matrix view. Safe for concurrent use.
type Controller struct {
	mu        sync.RWMutex
	subject   grade.Subject
	students  []grade.Student
	index     map[string]int
	persisted grade.Scores
	semester  grade.Semester
	overlay   map[grade.CellKey]*overlay
	saver     *SaveEngine
	notify    Notifier
}

func NewController(cfg Config) (*Controller, error) {
	if err := cfg.Semester.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Subject.Validate(); err != nil {
		return nil, err
	}
	if cfg.Saver == nil {
		return nil, fmt.Errorf("matrix: save engine is required")
	}
	scores := cfg.Scores
	if scores == nil {
		scores = grade.Scores{}
	}
	c := &Controller{
		subject:   cfg.Subject,
		students:  append([]grade.Student(nil), cfg.Students...),
		index:     make(map[string]int, len(cfg.Students)),
		persisted: scores,
		semester:  cfg.Semester,
		overlay:   make(map[grade.CellKey]*overlay),
		saver:     cfg.Saver,
		notify:    cfg.Notify,
	}
	for i, st := range c.students {
		c.index[st.ID] = i
	}
	return c, nil
}

// Input records a keystroke. The text is shown as typed and not validated.
func (c *Controller) Input(studentID string, slot int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := c.key(studentID, slot)
	if err != nil {
		return err
	}
	o := c.cell(key)
	o.draft = text
	o.drafting = true
	return nil
}

// Commit validates the typed text of a cell and forwards it to the save
// engine. Blank text clears the cell. A rejected value is dropped so the cell
// shows what it showed before typing, and a *grade.ValidationError is returned.
// Committing a cell that was not typed into does nothing.
func (c *Controller) Commit(ctx context.Context, studentID string, slot int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := c.key(studentID, slot)
	if err != nil {
		return err
	}
	o, ok := c.overlay[key]
	if !ok || !o.drafting {
		return nil
	}

	text := o.draft
	o.draft = ""
	o.drafting = false

	value, err := grade.ParseScore(text)
	if err != nil {
		if c.notify != nil {
			c.notify.ValidationFailed(key, text)
		}
		return &grade.ValidationError{Key: key, Text: text, Err: err}
	}
	c.accept(ctx, key, o, value)
	return nil
}

// Clear empties a cell and commits null.
func (c *Controller) Clear(ctx context.Context, studentID string, slot int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := c.key(studentID, slot)
	if err != nil {
		return err
	}
	o := c.cell(key)
	o.draft = ""
	o.drafting = false
	c.accept(ctx, key, o, grade.Null())
	return nil
}

func (c *Controller) accept(ctx context.Context, key grade.CellKey, o *overlay, value grade.Score) {
	o.accepted = value
	o.hasValue = true
	c.saver.Commit(ctx, key, value)
}

// Display is the text shown in a cell: what is being typed, else the value
// accepted this session, else the persisted value, else "".
func (c *Controller) Display(studentID string, slot int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.display(c.keyOf(studentID, slot))
}

func (c *Controller) display(key grade.CellKey) string {
	if o, ok := c.overlay[key]; ok {
		if o.drafting {
			return o.draft
		}
		if o.hasValue {
			return o.accepted.String()
		}
	}
	return c.persisted.Score(key).String()
}

// Score implements grade.ScoreSource. Text still being typed is not counted.
func (c *Controller) Score(key grade.CellKey) grade.Score {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.score(key)
}

func (c *Controller) score(key grade.CellKey) grade.Score {
	if o, ok := c.overlay[key]; ok && o.hasValue {
		return o.accepted
	}
	return c.persisted.Score(key)
}

// SetSemester switches the visible semester. The overlay is kept.
func (c *Controller) SetSemester(sem grade.Semester) error {
	if err := sem.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.semester = sem
	c.mu.Unlock()
	return nil
}

func (c *Controller) Semester() grade.Semester {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.semester
}

func (c *Controller) Subject() grade.Subject {
	return c.subject
}

// Columns returns the slot positions of the visible semester.
func (c *Controller) Columns() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.columns()
}

func (c *Controller) columns() []int {
	if c.subject.ID == "" {
		return []int{}
	}
	return c.subject.SemesterSlots(c.semester)
}

// Rows returns the roster in display order.
func (c *Controller) Rows() []grade.Student {
	return append([]grade.Student(nil), c.students...)
}

// Status returns the save state of a cell.
func (c *Controller) Status(studentID string, slot int) Status {
	return c.saver.Status(c.keyOf(studentID, slot))
}

func (c *Controller) keyOf(studentID string, slot int) grade.CellKey {
	return grade.CellKey{StudentID: studentID, SubjectID: c.subject.ID, Slot: slot}
}

// key resolves a cell of the visible grid.
func (c *Controller) key(studentID string, slot int) (grade.CellKey, error) {
	if _, ok := c.index[studentID]; !ok {
		return grade.CellKey{}, fmt.Errorf("student %q: %w", studentID, ErrUnknownCell)
	}
	for _, p := range c.columns() {
		if p == slot {
			return c.keyOf(studentID, slot), nil
		}
	}
	return grade.CellKey{}, fmt.Errorf("slot %d: %w", slot, ErrUnknownCell)
}

func (c *Controller) cell(key grade.CellKey) *overlay {
	o, ok := c.overlay[key]
	if !ok {
		o = &overlay{}
		c.overlay[key] = o
	}
	return o
}
