// Package session keeps the open matrix views. Each view reads the roster
// once when it is opened and keeps its overlay and dedupe memo until closed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"schooldash/backend/internal/grade"
	"schooldash/backend/internal/grade/matrix"
	"schooldash/backend/internal/grade/navigation"
	"schooldash/backend/internal/grade/store"
	"schooldash/backend/internal/shared"
)

var ErrViewNotFound = errors.New("matrix view not found")

// Options tune view lifetime.
type Options struct {
	// ViewTTL closes views idle for longer. Zero keeps them until closed.
	ViewTTL          time.Duration
	SweepInterval    time.Duration
	SlotsPerSemester int
}

// Manager owns every open view.
type Manager struct {
	store store.Store
	opts  Options
	now   func() time.Time

	mu    sync.Mutex
	views map[string]*View

	// closing tracks saves still in flight for views already closed.
	closing sync.WaitGroup
}

func NewManager(s store.Store, opts Options) *Manager {
	return &Manager{
		store: s,
		opts:  opts,
		now:   time.Now,
		views: make(map[string]*View),
	}
}

// Open loads a subject and opens a view on the given semester. An unknown
// subject opens an empty grid.
func (m *Manager) Open(ctx context.Context, subjectID string, sem grade.Semester) (*View, error) {
	if err := sem.Validate(); err != nil {
		return nil, err
	}

	var (
		subjects []grade.Subject
		records  []store.WideRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subjects, err = m.store.Subjects(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = m.store.Roster(gctx, subjectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load subject %s: %w", subjectID, err)
	}

	subject, found := findSubject(subjects, subjectID)
	if !found {
		log.Printf("WARN: subject %s not found, opening an empty grid", subjectID)
		records = nil
	}
	if subject.SlotsPerSemester == 0 && m.opts.SlotsPerSemester > 0 {
		subject.SlotsPerSemester = m.opts.SlotsPerSemester
	}
	students, scores := store.ToMatrix(records, subjectID)

	alerts := &matrix.Alerts{}
	engine := matrix.NewSaveEngine(m.store, alerts)
	ctrl, err := matrix.NewController(matrix.Config{
		Subject:  subject,
		Students: students,
		Scores:   scores,
		Semester: sem,
		Saver:    engine,
		Notify:   alerts,
	})
	if err != nil {
		return nil, err
	}

	v := &View{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		ctrl:      ctrl,
		engine:    engine,
		alerts:    alerts,
	}
	v.focus = navigation.NewFocus(v.grid())
	v.touch(m.now())

	m.mu.Lock()
	m.views[v.ID] = v
	m.mu.Unlock()

	shared.Debugf("opened view %s for subject %s (%d students)", v.ID, subjectID, len(students))
	return v, nil
}

// Get returns an open view and marks it used.
func (m *Manager) Get(id string) (*View, error) {
	m.mu.Lock()
	v, ok := m.views[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrViewNotFound
	}
	v.touch(m.now())
	return v, nil
}

// Close discards a view's overlay. Saves already issued still complete.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	v, ok := m.views[id]
	delete(m.views, id)
	m.mu.Unlock()
	if !ok {
		return ErrViewNotFound
	}
	m.retire(v)
	return nil
}

// Len returns the number of open views.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}

// Sweep closes views idle for longer than ViewTTL and returns how many it closed.
func (m *Manager) Sweep() int {
	if m.opts.ViewTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.opts.ViewTTL)

	m.mu.Lock()
	var idle []*View
	for id, v := range m.views {
		if v.idleSince().Before(cutoff) {
			idle = append(idle, v)
			delete(m.views, id)
		}
	}
	m.mu.Unlock()

	for _, v := range idle {
		m.retire(v)
	}
	if len(idle) > 0 {
		log.Printf("INFO: closed %d idle gradebook views", len(idle))
	}
	return len(idle)
}

// Run sweeps idle views until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	if m.opts.ViewTTL <= 0 || m.opts.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// WaitAll blocks until every save issued by any view has finished, or ctx is done.
func (m *Manager) WaitAll(ctx context.Context) error {
	m.mu.Lock()
	open := make([]*View, 0, len(m.views))
	for _, v := range m.views {
		open = append(open, v)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, v := range open {
			v.Wait()
		}
		m.closing.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) retire(v *View) {
	m.closing.Add(1)
	go func() {
		defer m.closing.Done()
		v.Wait()
	}()
}

func findSubject(subjects []grade.Subject, id string) (grade.Subject, bool) {
	for _, s := range subjects {
		if s.ID == id {
			return s, true
		}
	}
	return grade.Subject{}, false
}
