package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"schooldash/backend/internal/gateway/util"
	"schooldash/backend/internal/grade"
	"schooldash/backend/internal/grade/report"
	"schooldash/backend/internal/grade/store"
)

// ScoreHandler serves the roster read and score upsert contracts from the
// configured store.
type ScoreHandler struct {
	Store store.Store
}

// ListSubjects handles GET /subjects
func (h *ScoreHandler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	subjects, err := h.Store.Subjects(ctx)
	if err != nil {
		util.HandleError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, subjects)
}

// GetRoster handles GET /subjects/{subject_id}/roster
// Each student comes back as a wide record: {id, name, n1..n20}.
func (h *ScoreHandler) GetRoster(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subject_id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	records, err := h.Store.Roster(ctx, subjectID)
	if err != nil {
		util.HandleError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, records)
}

// UpsertScore handles PUT /scores
// Body: {student_id, subject_id, slot, value} where value is 10..70 or null.
func (h *ScoreHandler) UpsertScore(w http.ResponseWriter, r *http.Request) {
	var req grade.ScoreWrite
	if err := util.DecodeJSON(r, &req); err != nil {
		util.HandleError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Store.UpsertScore(ctx, req); err != nil {
		util.HandleError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "score saved",
	})
}

// GetReport handles GET /students/{student_id}/report
// Per-subject averages plus the general averages across subjects.
func (h *ScoreHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "student_id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rep, err := report.Build(ctx, h.Store, studentID)
	if err != nil {
		util.HandleError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, rep)
}
