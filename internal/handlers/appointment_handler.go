package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/stylebook/backend/internal/models"
	"github.com/stylebook/backend/internal/services"
)

type appointmentResult = *services.Result[*models.Appointment]

// AppointmentActions is the appointment engine as seen by HTTP.
type AppointmentActions interface {
	Book(ctx context.Context, actor services.Actor, in services.BookInput) (*services.Result[*services.Booking], error)
	VerifyPayment(ctx context.Context, actor services.Actor, id uuid.UUID) (appointmentResult, error)
	Approve(ctx context.Context, actor services.Actor, id uuid.UUID, note string) (appointmentResult, error)
	Reject(ctx context.Context, actor services.Actor, id uuid.UUID, note string) (appointmentResult, error)
	Cancel(ctx context.Context, actor services.Actor, id uuid.UUID, note string) (appointmentResult, error)
	Reschedule(ctx context.Context, actor services.Actor, id uuid.UUID, in services.RescheduleInput) (appointmentResult, error)
	AcceptReschedule(ctx context.Context, actor services.Actor, id uuid.UUID) (appointmentResult, error)
	Confirm(ctx context.Context, actor services.Actor, id uuid.UUID, code string) (appointmentResult, error)
	Complete(ctx context.Context, actor services.Actor, id uuid.UUID, code string) (appointmentResult, error)
	FileDispute(ctx context.Context, actor services.Actor, id uuid.UUID, in services.DisputeInput) (*services.Result[*models.AppointmentDispute], error)
	Delete(ctx context.Context, actor services.Actor, id uuid.UUID) (appointmentResult, error)
	Get(ctx context.Context, actor services.Actor, id uuid.UUID) (*models.Appointment, error)
	List(ctx context.Context, actor services.Actor) ([]*models.Appointment, error)
	Statement(ctx context.Context, actor services.Actor, id uuid.UUID) (*services.Statement, error)
}

// AppointmentHandler serves /api/v1/appointments.
type AppointmentHandler struct {
	Service AppointmentActions
	Schemas *Schemas
	Logger  *slog.Logger
}

type noteRequest struct {
	Note string `json:"note"`
}

type codeRequest struct {
	Code string `json:"code"`
}

// Book handles POST /api/v1/appointments.
func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var in services.BookInput
	if !decode(w, r, h.Schemas, SchemaBook, &in) {
		return
	}
	res, err := h.Service.Book(r.Context(), a, in)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	list, err := h.Service.List(r.Context(), a)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if list == nil {
		list = []*models.Appointment{}
	}
	writeOK(w, http.StatusOK, "", list)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	appt, err := h.Service.Get(r.Context(), a, id)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", appt)
}

// Ledger handles GET /api/v1/appointments/{id}/ledger.
func (h *AppointmentHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	st, err := h.Service.Statement(r.Context(), a, id)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", st)
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.simple(w, r, h.Service.Delete)
}

func (h *AppointmentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	h.simple(w, r, h.Service.VerifyPayment)
}

func (h *AppointmentHandler) AcceptReschedule(w http.ResponseWriter, r *http.Request) {
	h.simple(w, r, h.Service.AcceptReschedule)
}

func (h *AppointmentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.withNote(w, r, h.Service.Approve)
}

func (h *AppointmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.withNote(w, r, h.Service.Reject)
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.withNote(w, r, h.Service.Cancel)
}

func (h *AppointmentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, h.Service.Confirm)
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, h.Service.Complete)
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	a, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in services.RescheduleInput
	if !decode(w, r, h.Schemas, SchemaReschedule, &in) {
		return
	}
	res, err := h.Service.Reschedule(r.Context(), a, id, in)
	h.respond(w, r, res, err)
}

// FileDispute handles POST /api/v1/appointments/{id}/disputes.
func (h *AppointmentHandler) FileDispute(w http.ResponseWriter, r *http.Request) {
	a, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in services.DisputeInput
	if !decode(w, r, h.Schemas, SchemaDispute, &in) {
		return
	}
	res, err := h.Service.FileDispute(r.Context(), a, id, in)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

// --- helpers ---

func (h *AppointmentHandler) target(w http.ResponseWriter, r *http.Request) (services.Actor, uuid.UUID, bool) {
	a, ok := actor(w, r)
	if !ok {
		return a, uuid.Nil, false
	}
	id, ok := pathID(w, r, "id")
	return a, id, ok
}

func (h *AppointmentHandler) respond(w http.ResponseWriter, r *http.Request, res appointmentResult, err error) {
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

func (h *AppointmentHandler) simple(w http.ResponseWriter, r *http.Request, fn func(context.Context, services.Actor, uuid.UUID) (appointmentResult, error)) {
	a, id, ok := h.target(w, r)
	if !ok {
		return
	}
	res, err := fn(r.Context(), a, id)
	h.respond(w, r, res, err)
}

func (h *AppointmentHandler) withNote(w http.ResponseWriter, r *http.Request, fn func(context.Context, services.Actor, uuid.UUID, string) (appointmentResult, error)) {
	a, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in noteRequest
	if !decode(w, r, h.Schemas, SchemaNote, &in) {
		return
	}
	res, err := fn(r.Context(), a, id, in.Note)
	h.respond(w, r, res, err)
}

func (h *AppointmentHandler) withCode(w http.ResponseWriter, r *http.Request, fn func(context.Context, services.Actor, uuid.UUID, string) (appointmentResult, error)) {
	a, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in codeRequest
	if !decode(w, r, h.Schemas, SchemaCode, &in) {
		return
	}
	res, err := fn(r.Context(), a, id, in.Code)
	h.respond(w, r, res, err)
}
