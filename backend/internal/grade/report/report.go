// Package report builds a student's averages across every subject.
package report

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schooldash/backend/internal/grade"
	"schooldash/backend/internal/grade/store"
)

// rosterFetchLimit bounds concurrent roster reads against the store.
const rosterFetchLimit = 4

// Line is one subject on a student's report.
type Line struct {
	SubjectID      string `json:"subject_id"`
	Subject        string `json:"subject"`
	FirstSemester  string `json:"first_semester"`
	SecondSemester string `json:"second_semester"`
	Final          string `json:"final"`
}

// Report holds a student's per-subject averages and the general averages
// across subjects.
type Report struct {
	StudentID      string `json:"student_id"`
	Name           string `json:"name"`
	Subjects       []Line `json:"subjects"`
	FirstSemester  string `json:"first_semester_average"`
	SecondSemester string `json:"second_semester_average"`
	Final          string `json:"final_average"`
}

// Build reads every subject's roster and averages the student's scores.
// Subjects whose roster does not list the student are left out. A student
// absent from every roster is NotFound.
func Build(ctx context.Context, s store.Store, studentID string) (*Report, error) {
	if studentID == "" {
		return nil, status.Error(codes.InvalidArgument, "student_id is required")
	}

	subjects, err := s.Subjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}

	records := make([]*store.WideRecord, len(subjects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rosterFetchLimit)
	for i, subj := range subjects {
		g.Go(func() error {
			roster, err := s.Roster(gctx, subj.ID)
			if err != nil {
				return fmt.Errorf("load roster %s: %w", subj.ID, err)
			}
			for j := range roster {
				if roster[j].StudentID == studentID {
					records[i] = &roster[j]
					break
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{StudentID: studentID, Subjects: []Line{}}
	scores := grade.Scores{}
	var enrolled []grade.Subject
	for i, subj := range subjects {
		rec := records[i]
		if rec == nil {
			continue
		}
		rep.Name = rec.StudentName
		_, subjScores := store.ToMatrix([]store.WideRecord{*rec}, subj.ID)
		for k, v := range subjScores {
			scores[k] = v
		}
		enrolled = append(enrolled, subj)

		rep.Subjects = append(rep.Subjects, Line{
			SubjectID:      subj.ID,
			Subject:        subj.Name,
			FirstSemester:  grade.SemesterAverage(scores, studentID, subj, grade.FirstSemester).Display(),
			SecondSemester: grade.SemesterAverage(scores, studentID, subj, grade.SecondSemester).Display(),
			Final:          grade.FinalAverage(scores, studentID, subj).Display(),
		})
	}
	if len(enrolled) == 0 {
		return nil, status.Errorf(codes.NotFound, "student %s not found", studentID)
	}

	rep.FirstSemester = grade.GeneralAverage(scores, studentID, enrolled, grade.FirstSemester).Display()
	rep.SecondSemester = grade.GeneralAverage(scores, studentID, enrolled, grade.SecondSemester).Display()
	rep.Final = grade.FinalGeneralAverage(scores, studentID, enrolled).Display()
	return rep, nil
}
