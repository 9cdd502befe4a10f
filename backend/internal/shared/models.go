// ============================================================================
// backend/internal/shared/models.go
// MongoDB documents shared by the gradebook service and the seeder
// ============================================================================

package shared

import (
	"time"
)

// Collection names
const (
	StudentsCollection   = "students"
	SubjectsCollection   = "subjects"
	GradebookCollection  = "gradebooks"
	AuditLogsCollection  = "audit_logs"
	StudentStatusActive  = "active"
	StudentStatusDropped = "dropped"
)

// ============================================================================
// Roster Models
// ============================================================================

// Student is a roster entry. The roster module owns these documents.
type Student struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Status    string    `bson:"status" json:"status"` // active, dropped
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Subject is a gradebook subject. Concept subjects display MB/B/S/I labels.
type Subject struct {
	ID                  string    `bson:"_id" json:"id"`
	Name                string    `bson:"name" json:"name"`
	Concept             bool      `bson:"concept" json:"concept"`
	SlotsPerSemester    int32     `bson:"slots_per_semester,omitempty" json:"slots_per_semester,omitempty"`
	SecondSemesterSlots int32     `bson:"second_semester_slots,omitempty" json:"second_semester_slots,omitempty"`
	CreatedAt           time.Time `bson:"created_at" json:"created_at"`
}

// ============================================================================
// Gradebook Models
// ============================================================================

// Gradebook is the wide per-student, per-subject score document.
// Slot values live in fields n1..n20 and are null when not yet graded.
type Gradebook struct {
	ID             string    `bson:"_id" json:"id"`
	StudentID      string    `bson:"student_id" json:"student_id"`
	SubjectID      string    `bson:"subject_id" json:"subject_id"`
	LastModifiedBy string    `bson:"last_modified_by,omitempty" json:"last_modified_by,omitempty"`
	LastModifiedAt time.Time `bson:"last_modified_at,omitempty" json:"last_modified_at,omitempty"`
}

// GradebookID builds the document id of a student's gradebook in a subject.
func GradebookID(studentID, subjectID string) string {
	return studentID + ":" + subjectID
}

// ============================================================================
// Audit Log Models
// ============================================================================

// AuditLog records a single score write.
type AuditLog struct {
	ID        string                 `bson:"_id" json:"id"`
	Timestamp time.Time              `bson:"timestamp" json:"timestamp"`
	UserID    string                 `bson:"user_id" json:"user_id"`
	Action    string                 `bson:"action" json:"action"`
	Resource  string                 `bson:"resource" json:"resource"`
	Details   map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
}
