package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/stylebook/backend/internal/models"
	"github.com/stylebook/backend/internal/services"
)

type DisputeActions interface {
	Resolve(ctx context.Context, actor services.Actor, id uuid.UUID, in services.ResolveInput) (*services.Result[*services.Resolution], error)
	StartReview(ctx context.Context, actor services.Actor, id uuid.UUID) (*services.Result[*models.AppointmentDispute], error)
	Close(ctx context.Context, actor services.Actor, id uuid.UUID) (*services.Result[*models.AppointmentDispute], error)
	Get(ctx context.Context, actor services.Actor, id uuid.UUID) (*models.AppointmentDispute, error)
	ListByAppointment(ctx context.Context, actor services.Actor, appointmentID uuid.UUID) ([]*models.AppointmentDispute, error)
}

// DisputeHandler serves /api/v1/disputes and the dispute list of an
// appointment.
type DisputeHandler struct {
	Service DisputeActions
	Schemas *Schemas
	Logger  *slog.Logger
}

func (h *DisputeHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.Service.Get(r.Context(), a, id)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", d)
}

// ListByAppointment handles GET /api/v1/appointments/{id}/disputes.
func (h *DisputeHandler) ListByAppointment(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.Service.ListByAppointment(r.Context(), a, id)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if list == nil {
		list = []*models.AppointmentDispute{}
	}
	writeOK(w, http.StatusOK, "", list)
}

// Resolve handles POST /api/v1/disputes/{id}/resolve.
func (h *DisputeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.ResolveInput
	if !decode(w, r, h.Schemas, SchemaResolve, &in) {
		return
	}
	res, err := h.Service.Resolve(r.Context(), a, id, in)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

func (h *DisputeHandler) StartReview(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Service.StartReview)
}

func (h *DisputeHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Service.Close)
}

func (h *DisputeHandler) move(w http.ResponseWriter, r *http.Request, fn func(context.Context, services.Actor, uuid.UUID) (*services.Result[*models.AppointmentDispute], error)) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := fn(r.Context(), a, id)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}
