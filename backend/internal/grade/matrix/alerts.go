package matrix

import (
	"sync"

	"schooldash/backend/internal/grade"
)

// Messages surfaced by the shared dialogs. The wording is fixed.
const (
	InvalidScoreMessage = "invalid score: enter a value between 10 and 70"
	SaveFailedMessage   = "could not save the score, please enter it again"
)

// AlertKind distinguishes the two shared dialogs.
type AlertKind string

const (
	AlertValidation AlertKind = "validation"
	AlertSave       AlertKind = "save"
)

// Alert is one raised dialog.
type Alert struct {
	Kind    AlertKind     `json:"kind"`
	Message string        `json:"message"`
	Cell    grade.CellKey `json:"cell"`
}

// Notifier receives the shared validation and save failure alerts.
type Notifier interface {
	ValidationFailed(key grade.CellKey, text string)
	SaveFailed(key grade.CellKey, err error)
}

// Alerts queues raised alerts until the view is next read.
// Network faults and server rejections produce the same alert.
type Alerts struct {
	mu      sync.Mutex
	pending []Alert
}

func (a *Alerts) ValidationFailed(key grade.CellKey, text string) {
	a.push(Alert{Kind: AlertValidation, Message: InvalidScoreMessage, Cell: key})
}

func (a *Alerts) SaveFailed(key grade.CellKey, err error) {
	a.push(Alert{Kind: AlertSave, Message: SaveFailedMessage, Cell: key})
}

// Drain returns and clears the pending alerts.
func (a *Alerts) Drain() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.pending
	a.pending = nil
	if out == nil {
		out = []Alert{}
	}
	return out
}

func (a *Alerts) push(alert Alert) {
	a.mu.Lock()
	a.pending = append(a.pending, alert)
	a.mu.Unlock()
}
