package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"schooldash/backend/internal/grade"
	"schooldash/backend/internal/grade/store"
	"schooldash/backend/internal/shared"
)

// SubjectSeed describes a subject and how many slots per semester get scores.
// Second, when set, shortens the second semester.
type SubjectSeed struct {
	ID      string
	Name    string
	Concept bool
	Graded  int
	Second  int
}

var (
	studentNames = []string{
		"Ana Souza", "Bruno Lima", "Carla Dias", "Diego Martins", "Eduarda Rocha",
		"Felipe Alves", "Gabriela Nunes", "Henrique Costa", "Isabela Ramos", "João Pereira",
		"Larissa Melo", "Marcos Teixeira", "Natália Freitas", "Otávio Barros", "Paula Cardoso",
	}

	subjectSeeds = []SubjectSeed{
		{"MAT", "Matemática", false, 6, 0},
		{"POR", "Língua Portuguesa", false, 5, 0},
		{"CIE", "Ciências", false, 4, 0},
		{"HIS", "História", false, 3, 9},
		{"EDF", "Educação Física", true, 4, 0},
		{"ART", "Artes", true, 2, 0},
	}
)

func main() {
	drop := flag.Bool("drop", true, "drop the database before seeding")
	seed := flag.Int64("seed", 42, "random seed for generated scores")
	flag.Parse()

	log.Println("INFO: Starting Gradebook Seeder...")

	if err := shared.LoadEnv(".env"); err != nil {
		log.Println("WARN: .env file not found, using system environment variables")
	}

	mongoCfg := &shared.MongoConfig{
		URI:            shared.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
		Database:       shared.GetEnv("MONGO_DB_NAME", "schooldash"),
		ConnectTimeout: shared.GetDurationEnv("MONGO_CONNECT_TIMEOUT", 20*time.Second),
		MaxPoolSize:    10,
		MinPoolSize:    1,
		MaxIdleTime:    30 * time.Second,
	}

	client, db, err := shared.ConnectMongoDB(mongoCfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to connect to MongoDB: %v", err)
	}
	defer shared.DisconnectMongoDB(client)

	if *drop {
		if err := db.Drop(context.Background()); err != nil {
			log.Fatalf("FATAL: Failed to drop database: %v", err)
		}
		log.Println("INFO: Database cleared.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	students := seedStudents(ctx, db)
	subjects := seedSubjects(ctx, db)
	seedGradebooks(ctx, db, students, subjects, rand.New(rand.NewSource(*seed)))

	if err := store.NewMongoStore(db).EnsureIndexes(ctx); err != nil {
		log.Fatalf("FATAL: Failed to create indexes: %v", err)
	}

	log.Println("INFO: Seeding completed.")
}

// ============================================================================
// SEEDING FUNCTIONS
// ============================================================================

func seedStudents(ctx context.Context, db *mongo.Database) []shared.Student {
	log.Println("--- Seeding Students ---")
	col := db.Collection(shared.StudentsCollection)

	now := time.Now()
	students := make([]shared.Student, 0, len(studentNames))
	for i, name := range studentNames {
		st := shared.Student{
			ID:        studentID(i),
			Name:      name,
			Status:    shared.StudentStatusActive,
			CreatedAt: now,
		}
		// One dropped student so the roster filter is exercised.
		if i == len(studentNames)-1 {
			st.Status = shared.StudentStatusDropped
		}

		opts := options.Update().SetUpsert(true)
		if _, err := col.UpdateOne(ctx, bson.M{"_id": st.ID}, bson.M{"$set": st}, opts); err != nil {
			log.Fatalf("FATAL: seeding student %s: %v", st.Name, err)
		}
		students = append(students, st)
	}
	log.Printf("Seeded %d students", len(students))
	return students
}

func seedSubjects(ctx context.Context, db *mongo.Database) []SubjectSeed {
	log.Println("--- Seeding Subjects ---")
	col := db.Collection(shared.SubjectsCollection)

	now := time.Now()
	for _, s := range subjectSeeds {
		doc := shared.Subject{
			ID:                  s.ID,
			Name:                s.Name,
			Concept:             s.Concept,
			SlotsPerSemester:    grade.DefaultSlotsPerSemester,
			SecondSemesterSlots: int32(s.Second),
			CreatedAt:           now,
		}
		opts := options.Update().SetUpsert(true)
		if _, err := col.UpdateOne(ctx, bson.M{"_id": s.ID}, bson.M{"$set": doc}, opts); err != nil {
			log.Fatalf("FATAL: seeding subject %s: %v", s.Name, err)
		}
		log.Printf("Seeded Subject: %s (%s)", s.Name, s.ID)
	}
	return subjectSeeds
}

// seedGradebooks writes the first s.Graded slots of each semester, leaving
// some cells empty so averages skip them.
func seedGradebooks(ctx context.Context, db *mongo.Database, students []shared.Student, subjects []SubjectSeed, rng *rand.Rand) {
	log.Println("--- Seeding Gradebooks ---")
	col := db.Collection(shared.GradebookCollection)

	count := 0
	for _, s := range subjects {
		subj := grade.Subject{SecondSemesterSlots: s.Second}
		for _, st := range students {
			set := bson.M{
				"student_id":       st.ID,
				"subject_id":       s.ID,
				"last_modified_by": "seeder",
				"last_modified_at": time.Now(),
			}
			for _, sem := range grade.Semesters {
				slots := subj.SemesterSlots(sem)
				for i := 0; i < s.Graded && i < len(slots); i++ {
					if rng.Intn(10) == 0 {
						continue
					}
					set[store.SlotField(slots[i])] = int32(grade.MinScore + rng.Intn(grade.MaxScore-grade.MinScore+1))
				}
			}

			opts := options.Update().SetUpsert(true)
			id := shared.GradebookID(st.ID, s.ID)
			if _, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts); err != nil {
				log.Fatalf("FATAL: seeding gradebook %s: %v", id, err)
			}
			count++
		}
	}
	log.Printf("Seeded %d gradebooks", count)
}

func studentID(i int) string {
	return fmt.Sprintf("student-%03d", i+1)
}
