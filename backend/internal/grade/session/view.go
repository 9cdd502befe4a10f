package session

import (
	"io"
	"sync"
	"time"

	"schooldash/backend/internal/grade"
	"schooldash/backend/internal/grade/export"
	"schooldash/backend/internal/grade/matrix"
	"schooldash/backend/internal/grade/navigation"
)

// View is one open grade screen: a controller with its own save engine,
// alerts and focus. Nothing in a view outlives it.
type View struct {
	ID        string
	SubjectID string

	ctrl   *matrix.Controller
	engine *matrix.SaveEngine
	alerts *matrix.Alerts
	focus  *navigation.Focus

	mu       sync.Mutex
	lastUsed time.Time
}

// Snapshot is what the grade screen renders.
type Snapshot struct {
	ViewID string `json:"view_id"`
	matrix.Snapshot
	Focus  navigation.Address `json:"focus"`
	Alerts []matrix.Alert     `json:"alerts"`
}

func (v *View) Controller() *matrix.Controller { return v.ctrl }

func (v *View) Focus() *navigation.Focus { return v.focus }

// Snapshot renders the view and hands over the alerts raised since the last call.
func (v *View) Snapshot() Snapshot {
	return Snapshot{
		ViewID:   v.ID,
		Snapshot: v.ctrl.Snapshot(),
		Focus:    v.focus.At(),
		Alerts:   v.alerts.Drain(),
	}
}

// SetSemester switches semester and keeps the focus inside the new grid.
func (v *View) SetSemester(sem grade.Semester) error {
	if err := v.ctrl.SetSemester(sem); err != nil {
		return err
	}
	v.focus.Resize(v.grid())
	return nil
}

// Press moves focus with a navigation key.
func (v *View) Press(key navigation.Key) navigation.Result {
	return v.focus.Press(key)
}

// CellAt resolves a focus address to the student and slot under it.
func (v *View) CellAt(a navigation.Address) (string, int, bool) {
	rows, cols := v.ctrl.Rows(), v.ctrl.Columns()
	if a.Row < 0 || a.Row >= len(rows) || a.Col < 0 || a.Col >= len(cols) {
		return "", 0, false
	}
	return rows[a.Row].ID, cols[a.Col], true
}

// Export writes both semesters of every student, whatever semester is shown.
func (v *View) Export(w io.Writer) error {
	return export.Write(w, export.Sheet{
		Subject:  v.ctrl.Subject(),
		Students: v.ctrl.Rows(),
		Scores:   v.ctrl.Source(),
	})
}

// FileName is the download name of the export.
func (v *View) FileName() string {
	return export.FileName(v.ctrl.Subject().Name)
}

// Wait blocks until the view's in-flight saves are done.
func (v *View) Wait() {
	v.engine.Wait()
}

func (v *View) grid() navigation.Grid {
	return navigation.Grid{Rows: len(v.ctrl.Rows()), Cols: len(v.ctrl.Columns())}
}

func (v *View) touch(now time.Time) {
	v.mu.Lock()
	v.lastUsed = now
	v.mu.Unlock()
}

func (v *View) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastUsed
}
