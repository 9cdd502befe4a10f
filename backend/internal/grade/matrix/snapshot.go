package matrix

import "schooldash/backend/internal/grade"

// Snapshot is the rendered state of a view.
type Snapshot struct {
	Subject           grade.Subject  `json:"subject"`
	Semester          grade.Semester `json:"semester"`
	Columns           []int          `json:"columns"`
	Rows              []Row          `json:"rows"`
	ClassAverage      string         `json:"class_average"`
	FinalClassAverage string         `json:"final_class_average"`
}

// Row is one student line of the grid.
type Row struct {
	StudentID       string `json:"student_id"`
	Name            string `json:"name"`
	Cells           []Cell `json:"cells"`
	SemesterAverage string `json:"semester_average"`
	FinalAverage    string `json:"final_average"`
}

// Cell is one rendered score input.
type Cell struct {
	Slot   int    `json:"slot"`
	Text   string `json:"text"`
	Status Status `json:"status,omitempty"`
}

// unlocked reads the overlay without taking the controller lock.
type unlocked struct{ c *Controller }

func (u unlocked) Score(key grade.CellKey) grade.Score { return u.c.score(key) }

// Snapshot renders the visible semester with its averages.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	src := unlocked{c}
	cols := c.columns()
	snap := Snapshot{
		Subject:           c.subject,
		Semester:          c.semester,
		Columns:           cols,
		Rows:              make([]Row, 0, len(c.students)),
		ClassAverage:      grade.NoAverage.Display(),
		FinalClassAverage: grade.NoAverage.Display(),
	}
	if c.subject.ID == "" {
		return snap
	}

	for _, st := range c.students {
		row := Row{
			StudentID:       st.ID,
			Name:            st.Name,
			Cells:           make([]Cell, 0, len(cols)),
			SemesterAverage: grade.SemesterAverage(src, st.ID, c.subject, c.semester).Display(),
			FinalAverage:    grade.FinalAverage(src, st.ID, c.subject).Display(),
		}
		for _, slot := range cols {
			key := c.keyOf(st.ID, slot)
			row.Cells = append(row.Cells, Cell{Slot: slot, Text: c.display(key), Status: c.saver.Status(key)})
		}
		snap.Rows = append(snap.Rows, row)
	}
	snap.ClassAverage = grade.ClassAverage(src, c.students, c.subject, c.semester).Display()
	snap.FinalClassAverage = grade.FinalClassAverage(src, c.students, c.subject).Display()
	return snap
}

// Source returns a consistent copy of every accepted or persisted score of
// the subject, for use outside the controller lock.
func (c *Controller) Source() grade.Scores {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := grade.Scores{}
	for _, st := range c.students {
		for slot := 1; slot <= grade.MaxSlot; slot++ {
			key := c.keyOf(st.ID, slot)
			out.Set(key, c.score(key))
		}
	}
	return out
}
