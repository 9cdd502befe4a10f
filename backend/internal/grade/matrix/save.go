package matrix

import (
	"context"
	"fmt"
	"log"
	"sync"

	"schooldash/backend/internal/grade"
	"schooldash/backend/internal/shared"
)

// Status is the persistence state of one cell.
type Status int

const (
	StatusNone Status = iota
	StatusUnsaved
	StatusSaved
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUnsaved:
		return "unsaved"
	case StatusSaved:
		return "saved"
	case StatusError:
		return "error"
	default:
		return ""
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, st := range []Status{StatusNone, StatusUnsaved, StatusSaved, StatusError} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown save status %q", text)
}

// Saver is the single-cell upsert the engine calls.
type Saver interface {
	UpsertScore(ctx context.Context, w grade.ScoreWrite) error
}

// SaveEngine issues one persistence call per committed cell value and tracks
// per-cell status. The memo lives as long as the engine, one per matrix view.
type SaveEngine struct {
	saver  Saver
	notify Notifier

	mu     sync.Mutex
	memo   map[grade.CellKey]grade.Score
	gen    map[grade.CellKey]uint64
	status map[grade.CellKey]Status

	wg sync.WaitGroup
}

func NewSaveEngine(saver Saver, notify Notifier) *SaveEngine {
	return &SaveEngine{
		saver:  saver,
		notify: notify,
		memo:   make(map[grade.CellKey]grade.Score),
		gen:    make(map[grade.CellKey]uint64),
		status: make(map[grade.CellKey]Status),
	}
}

// Commit persists value for key in the background unless it equals the last
// value attempted for that cell. It reports whether a call was issued.
func (e *SaveEngine) Commit(ctx context.Context, key grade.CellKey, value grade.Score) bool {
	e.mu.Lock()
	if last, ok := e.memo[key]; ok && last == value {
		e.mu.Unlock()
		return false
	}
	e.memo[key] = value
	e.gen[key]++
	gen := e.gen[key]
	e.status[key] = StatusUnsaved
	e.mu.Unlock()

	w := grade.ScoreWrite{StudentID: key.StudentID, SubjectID: key.SubjectID, Slot: key.Slot, Value: value}
	saveCtx := context.WithoutCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		err := e.saver.UpsertScore(saveCtx, w)
		e.finish(key, gen, err)
	}()
	return true
}

func (e *SaveEngine) finish(key grade.CellKey, gen uint64, err error) {
	e.mu.Lock()
	if e.gen[key] != gen {
		e.mu.Unlock()
		shared.Debugf("stale save response for %s slot %d ignored", key.StudentID, key.Slot)
		return
	}
	if err == nil {
		e.status[key] = StatusSaved
		e.mu.Unlock()
		return
	}
	e.status[key] = StatusError
	delete(e.memo, key)
	e.mu.Unlock()

	log.Printf("WARN: saving %s/%s slot %d failed: %v", key.StudentID, key.SubjectID, key.Slot, err)
	if e.notify != nil {
		e.notify.SaveFailed(key, err)
	}
}

// Status returns the current state of a cell.
func (e *SaveEngine) Status(key grade.CellKey) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status[key]
}

// Wait blocks until every issued save has completed.
func (e *SaveEngine) Wait() {
	e.wg.Wait()
}
