package store

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schooldash/backend/internal/grade"
	"schooldash/backend/internal/shared"
)

// MongoStore persists gradebooks as one wide document per student and subject.
type MongoStore struct {
	db            *mongo.Database
	studentsCol   *mongo.Collection
	subjectsCol   *mongo.Collection
	gradebooksCol *mongo.Collection
	auditCol      *mongo.Collection
	timeout       time.Duration
}

// NewMongoStore creates a MongoStore instance
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:            db,
		studentsCol:   db.Collection(shared.StudentsCollection),
		subjectsCol:   db.Collection(shared.SubjectsCollection),
		gradebooksCol: db.Collection(shared.GradebookCollection),
		auditCol:      db.Collection(shared.AuditLogsCollection),
		timeout:       10 * time.Second,
	}
}

// EnsureIndexes creates the unique (student, subject) gradebook index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.gradebooksCol.Indexes().CreateMany(queryCtx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "subject_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "subject_id", Value: 1}}},
	})
	return err
}

// Subjects lists all subjects ordered by name
func (s *MongoStore) Subjects(ctx context.Context) ([]grade.Subject, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cursor, err := s.subjectsCol.Find(queryCtx, bson.M{}, shared.BuildFindOptions(0, "name", 1))
	if err != nil {
		log.Printf("ERROR: querying subjects: %v", err)
		return nil, status.Error(codes.Internal, "failed to retrieve subjects")
	}
	defer cursor.Close(queryCtx)

	subjects := []grade.Subject{}
	for cursor.Next(queryCtx) {
		var doc shared.Subject
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		subjects = append(subjects, grade.Subject{
			ID:                  doc.ID,
			Name:                doc.Name,
			Concept:             doc.Concept,
			SlotsPerSemester:    int(doc.SlotsPerSemester),
			SecondSemesterSlots: int(doc.SecondSemesterSlots),
		})
	}
	return subjects, nil
}

// Roster returns every active student with the subject's slot values
func (s *MongoStore) Roster(ctx context.Context, subjectID string) ([]WideRecord, error) {
	if subjectID == "" {
		return nil, status.Error(codes.InvalidArgument, "subject_id is required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var subject shared.Subject
	err := s.subjectsCol.FindOne(queryCtx, bson.M{"_id": subjectID}).Decode(&subject)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return []WideRecord{}, nil
		}
		log.Printf("ERROR: finding subject %s: %v", subjectID, err)
		return nil, status.Error(codes.Internal, "failed to retrieve subject information")
	}

	books, err := s.gradebooks(queryCtx, subjectID)
	if err != nil {
		return nil, err
	}

	cursor, err := s.studentsCol.Find(queryCtx,
		bson.M{"status": shared.StudentStatusActive},
		shared.BuildFindOptions(0, "name", 1),
	)
	if err != nil {
		log.Printf("ERROR: querying students: %v", err)
		return nil, status.Error(codes.Internal, "failed to retrieve roster")
	}
	defer cursor.Close(queryCtx)

	records := []WideRecord{}
	for cursor.Next(queryCtx) {
		var st shared.Student
		if err := cursor.Decode(&st); err != nil {
			continue
		}
		rec := WideRecord{StudentID: st.ID, StudentName: st.Name}
		if doc, ok := books[st.ID]; ok {
			documentToSlots(doc, &rec)
		}
		records = append(records, rec)
	}
	return records, nil
}

// UpsertScore writes one slot of a gradebook, creating the document on first write
func (s *MongoStore) UpsertScore(ctx context.Context, w grade.ScoreWrite) error {
	if err := checkWrite(w); err != nil {
		return err
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var student shared.Student
	if err := s.studentsCol.FindOne(queryCtx, bson.M{"_id": w.StudentID}).Decode(&student); err != nil {
		if err == mongo.ErrNoDocuments {
			return status.Errorf(codes.NotFound, "student not found: %s", w.StudentID)
		}
		return status.Error(codes.Internal, "failed to retrieve student information")
	}

	var subject shared.Subject
	if err := s.subjectsCol.FindOne(queryCtx, bson.M{"_id": w.SubjectID}).Decode(&subject); err != nil {
		if err == mongo.ErrNoDocuments {
			return status.Errorf(codes.NotFound, "subject not found: %s", w.SubjectID)
		}
		return status.Error(codes.Internal, "failed to retrieve subject information")
	}

	actor := shared.ActorFrom(ctx)
	var value interface{}
	if w.Value.Valid {
		value = int32(w.Value.Value)
	}

	update := bson.M{
		"$set": bson.M{
			SlotField(w.Slot):  value,
			"student_id":       w.StudentID,
			"subject_id":       w.SubjectID,
			"last_modified_by": actor,
			"last_modified_at": time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)
	id := shared.GradebookID(w.StudentID, w.SubjectID)
	if _, err := s.gradebooksCol.UpdateOne(queryCtx, bson.M{"_id": id}, update, opts); err != nil {
		log.Printf("ERROR: upserting %s slot %d: %v", id, w.Slot, err)
		return status.Error(codes.Internal, "failed to save score")
	}

	shared.LogAuditEvent(ctx, s.auditCol, actor, "score_upsert", id, map[string]interface{}{
		"slot":  w.Slot,
		"value": value,
	})
	return nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func (s *MongoStore) gradebooks(ctx context.Context, subjectID string) (map[string]bson.M, error) {
	cursor, err := s.gradebooksCol.Find(ctx, bson.M{"subject_id": subjectID})
	if err != nil {
		log.Printf("ERROR: querying gradebooks: %v", err)
		return nil, status.Error(codes.Internal, "failed to retrieve scores")
	}
	defer cursor.Close(ctx)

	books := make(map[string]bson.M)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		if sid, _ := shared.GetString(doc["student_id"]); sid != "" {
			books[sid] = doc
		}
	}
	return books, nil
}

func documentToSlots(doc bson.M, rec *WideRecord) {
	for slot := 1; slot <= grade.MaxSlot; slot++ {
		v, err := shared.GetInt32(doc[SlotField(slot)])
		if err != nil {
			continue
		}
		rec.SetSlot(slot, grade.Of(int(v)))
	}
}
