package grade

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Score bounds accepted for a single assessment.
const (
	MinScore = 10
	MaxScore = 70
)

var (
	ErrInvalidSemester = errors.New("semester must be 1 or 2")
	ErrInvalidSlot     = fmt.Errorf("slot position must be between 1 and %d", MaxSlot)
	ErrOutOfRange      = fmt.Errorf("score must be between %d and %d", MinScore, MaxScore)
	ErrNotANumber      = errors.New("score must be an integer")
)

// ValidationError reports a rejected cell value. Text is what the operator typed.
type ValidationError struct {
	Key  CellKey
	Text string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid score %q for student %s slot %d: %v", e.Text, e.Key.StudentID, e.Key.Slot, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Score is a nullable raw assessment value. The zero value is "not yet graded".
type Score struct {
	Value int
	Valid bool
}

// Null returns an ungraded score.
func Null() Score { return Score{} }

// Of returns a graded score holding v. It does not range-check v.
func Of(v int) Score { return Score{Value: v, Valid: true} }

// Validate checks that s is null or inside [MinScore, MaxScore].
func (s Score) Validate() error {
	if !s.Valid {
		return nil
	}
	if s.Value < MinScore || s.Value > MaxScore {
		return ErrOutOfRange
	}
	return nil
}

// Ptr returns nil for a null score, used by the JSON and BSON wide rows.
func (s Score) Ptr() *int {
	if !s.Valid {
		return nil
	}
	v := s.Value
	return &v
}

func (s Score) String() string {
	if !s.Valid {
		return ""
	}
	return strconv.Itoa(s.Value)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(s.Value)), nil
}

func (s *Score) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Null()
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode score: %w", err)
	}
	*s = Of(v)
	return nil
}

// ParseScore turns operator input into a score. Blank input is an explicit clear.
func ParseScore(text string) (Score, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Null(), nil
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return Null(), ErrNotANumber
	}
	s := Of(v)
	if err := s.Validate(); err != nil {
		return Null(), err
	}
	return s, nil
}

// CellKey identifies one assessment cell.
type CellKey struct {
	StudentID string `json:"student_id"`
	SubjectID string `json:"subject_id"`
	Slot      int    `json:"slot"`
}

// ScoreWrite is the payload of a single-cell upsert.
type ScoreWrite struct {
	StudentID string `json:"student_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	Slot      int    `json:"slot" validate:"min=1,max=20"`
	Value     Score  `json:"value"`
}

// Key returns the cell addressed by the write.
func (w ScoreWrite) Key() CellKey {
	return CellKey{StudentID: w.StudentID, SubjectID: w.SubjectID, Slot: w.Slot}
}

// Validate checks slot position and value range.
func (w ScoreWrite) Validate() error {
	if w.Slot < 1 || w.Slot > MaxSlot {
		return ErrInvalidSlot
	}
	return w.Value.Validate()
}

// Scores is the sparse persisted score map. A missing key is a null score.
type Scores map[CellKey]int

// Score implements ScoreSource.
func (s Scores) Score(key CellKey) Score {
	if v, ok := s[key]; ok {
		return Of(v)
	}
	return Null()
}

// Set stores or clears a value.
func (s Scores) Set(key CellKey, v Score) {
	if !v.Valid {
		delete(s, key)
		return
	}
	s[key] = v.Value
}

// ScoreSource resolves the current value of a cell.
type ScoreSource interface {
	Score(key CellKey) Score
}
