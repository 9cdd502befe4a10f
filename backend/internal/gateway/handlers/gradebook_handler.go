package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc/codes"

	"schooldash/backend/internal/gateway/util"
	"schooldash/backend/internal/grade"
	"schooldash/backend/internal/grade/matrix"
	"schooldash/backend/internal/grade/navigation"
	"schooldash/backend/internal/grade/session"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GradebookHandler drives open matrix views.
type GradebookHandler struct {
	Views *session.Manager
}

type openViewRequest struct {
	SubjectID string `json:"subject_id" validate:"notblank"`
	Semester  int    `json:"semester" validate:"required,oneof=1 2"`
}

type semesterRequest struct {
	Semester int `json:"semester" validate:"required,oneof=1 2"`
}

// cellRequest addresses one cell. Text is what the input currently holds.
type cellRequest struct {
	StudentID string  `json:"student_id" validate:"notblank"`
	Slot      int     `json:"slot" validate:"min=1,max=20"`
	Text      *string `json:"text"`
}

type focusRequest struct {
	Row int `json:"row" validate:"min=0"`
	Col int `json:"col" validate:"min=0"`
}

type navigateRequest struct {
	Key string `json:"key" validate:"notblank"`
}

// navigateResponse is the outcome of a key press and the cell it lands on.
type navigateResponse struct {
	navigation.Result
	StudentID string `json:"student_id,omitempty"`
	Slot      int    `json:"slot,omitempty"`
}

// OpenView handles POST /gradebook/views
func (h *GradebookHandler) OpenView(w http.ResponseWriter, r *http.Request) {
	var req openViewRequest
	if err := util.DecodeJSON(r, &req); err != nil {
		util.HandleError(w, err)
		return
	}

	v, err := h.Views.Open(r.Context(), req.SubjectID, grade.Semester(req.Semester))
	if err != nil {
		handleViewError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, v.Snapshot())
}

// GetView handles GET /gradebook/views/{view_id}
// Pending alerts are delivered once.
func (h *GradebookHandler) GetView(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	util.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// SetSemester handles PUT /gradebook/views/{view_id}/semester
func (h *GradebookHandler) SetSemester(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	var req semesterRequest
	if err := util.DecodeJSON(r, &req); err != nil {
		util.HandleError(w, err)
		return
	}
	if err := v.SetSemester(grade.Semester(req.Semester)); err != nil {
		handleViewError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// InputCell handles POST /gradebook/views/{view_id}/cells/input
func (h *GradebookHandler) InputCell(w http.ResponseWriter, r *http.Request) {
	h.cellAction(w, r, func(ctx context.Context, c *matrix.Controller, req cellRequest) error {
		if req.Text == nil {
			return util.StatusError(codes.InvalidArgument, errors.New("text is required"))
		}
		return c.Input(req.StudentID, req.Slot, *req.Text)
	})
}

// CommitCell handles POST /gradebook/views/{view_id}/cells/commit
// A rejected value is not an HTTP error: the snapshot carries the alert.
func (h *GradebookHandler) CommitCell(w http.ResponseWriter, r *http.Request) {
	h.cellAction(w, r, func(ctx context.Context, c *matrix.Controller, req cellRequest) error {
		if req.Text != nil {
			if err := c.Input(req.StudentID, req.Slot, *req.Text); err != nil {
				return err
			}
		}
		err := c.Commit(ctx, req.StudentID, req.Slot)
		var verr *grade.ValidationError
		if errors.As(err, &verr) {
			return nil
		}
		return err
	})
}

// ClearCell handles POST /gradebook/views/{view_id}/cells/clear
func (h *GradebookHandler) ClearCell(w http.ResponseWriter, r *http.Request) {
	h.cellAction(w, r, func(ctx context.Context, c *matrix.Controller, req cellRequest) error {
		return c.Clear(ctx, req.StudentID, req.Slot)
	})
}

func (h *GradebookHandler) cellAction(w http.ResponseWriter, r *http.Request, apply func(context.Context, *matrix.Controller, cellRequest) error) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	var req cellRequest
	if err := util.DecodeJSON(r, &req); err != nil {
		util.HandleError(w, err)
		return
	}
	if err := apply(r.Context(), v.Controller(), req); err != nil {
		handleViewError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// Focus handles POST /gradebook/views/{view_id}/focus
func (h *GradebookHandler) Focus(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	var req focusRequest
	if err := util.DecodeJSON(r, &req); err != nil {
		util.HandleError(w, err)
		return
	}
	if err := v.Focus().MoveTo(navigation.Address{Row: req.Row, Col: req.Col}); err != nil {
		handleViewError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, h.landing(v, navigation.Result{At: v.Focus().At()}))
}

// Navigate handles POST /gradebook/views/{view_id}/navigate
// Body: {key} with a DOM key name such as "ArrowRight" or "Enter".
func (h *GradebookHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	var req navigateRequest
	if err := util.DecodeJSON(r, &req); err != nil {
		util.HandleError(w, err)
		return
	}
	key, ok := navigation.ParseKey(req.Key)
	if !ok {
		util.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("unsupported key %q", req.Key))
		return
	}
	util.WriteJSON(w, http.StatusOK, h.landing(v, v.Press(key)))
}

func (h *GradebookHandler) landing(v *session.View, res navigation.Result) navigateResponse {
	out := navigateResponse{Result: res}
	if student, slot, ok := v.CellAt(res.At); ok {
		out.StudentID = student
		out.Slot = slot
	}
	return out
}

// Export handles GET /gradebook/views/{view_id}/export
func (h *GradebookHandler) Export(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := v.Export(&buf); err != nil {
		util.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", v.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// CloseView handles DELETE /gradebook/views/{view_id}
func (h *GradebookHandler) CloseView(w http.ResponseWriter, r *http.Request) {
	if err := h.Views.Close(chi.URLParam(r, "view_id")); err != nil {
		handleViewError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "view closed",
	})
}

func (h *GradebookHandler) view(w http.ResponseWriter, r *http.Request) (*session.View, bool) {
	v, err := h.Views.Get(chi.URLParam(r, "view_id"))
	if err != nil {
		handleViewError(w, err)
		return nil, false
	}
	return v, true
}

// handleViewError maps domain errors onto the gateway's status codes.
func handleViewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrViewNotFound), errors.Is(err, matrix.ErrUnknownCell):
		util.HandleGRPCError(w, util.StatusError(codes.NotFound, err))
	case errors.Is(err, grade.ErrInvalidSemester), errors.Is(err, navigation.ErrOutOfGrid):
		util.HandleGRPCError(w, util.StatusError(codes.InvalidArgument, err))
	default:
		util.HandleError(w, err)
	}
}
