package visitor_api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-admissions/internal/attendance"
	"ms-admissions/internal/attendance/pass"
	"ms-admissions/internal/auth"
	"ms-admissions/internal/logger"
	"ms-admissions/internal/utils"
)

// Handler exposes the gate-scanning endpoints.
type Handler struct {
	Service *attendance.Service
	Passes  *pass.Generator
	Logger  *logger.Logger
}

func NewHandler(service *attendance.Service, passes *pass.Generator, log *logger.Logger) *Handler {
	return &Handler{Service: service, Passes: passes, Logger: log}
}

// RegisterRoutes mounts the visitor routes on a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/visitors", func(r chi.Router) {
		r.Post("/verify", h.VerifyVisitor)
		r.Post("/exit/{entryID}", h.RecordExit)
		r.Get("/today", h.ListToday)
		r.Get("/ticket/{ticketNumber}", h.FindByTicket)
		r.Get("/pass/{entryID}", h.EntryPass)
	})
}

type verifyRequest struct {
	TicketNumber string `json:"ticket_number"`
	VerifiedBy   string `json:"verified_by"`
}

// VerifyVisitor validates a presented ticket and records the entry.
func (h *Handler) VerifyVisitor(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	// The gate UI may omit verified_by; fall back to the authenticated
	// staff member.
	if req.VerifiedBy == "" {
		if staffID, ok := auth.StaffIDFromContext(r.Context()); ok {
			req.VerifiedBy = staffID
		}
	}

	result, err := h.Service.Verify(r.Context(), req.TicketNumber, req.VerifiedBy)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusCreated, utils.SuccessResponse("Visitor entry recorded successfully", result))
}

// RecordExit closes an open admission by entry id.
func (h *Handler) RecordExit(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")

	record, err := h.Service.RecordExit(r.Context(), entryID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, utils.SuccessResponse("Visitor exit recorded successfully", record))
}

// ListToday returns today's attendance ordered by entry time.
func (h *Handler) ListToday(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.ListToday(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, utils.SuccessResponse("Today's visitors", map[string]interface{}{
		"count":    len(records),
		"visitors": records,
	}))
}

// FindByTicket returns the latest entry record for a ticket number.
func (h *Handler) FindByTicket(w http.ResponseWriter, r *http.Request) {
	ticketNumber := chi.URLParam(r, "ticketNumber")

	record, err := h.Service.FindByTicket(r.Context(), ticketNumber)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, utils.SuccessResponse("Visitor entry", record))
}

// EntryPass renders the QR entry pass for an admission. The exit gate
// scans this instead of typing entry ids.
func (h *Handler) EntryPass(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")

	record, err := h.Service.FindEntry(r.Context(), entryID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	png, err := h.Passes.GeneratePNG(pass.Payload{
		EntryID:      record.ID,
		TicketNumber: record.TicketNumber,
		EntryTime:    record.EntryTime,
	})
	if err != nil {
		sendJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Error generating entry pass", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// sendDomainError maps service failure kinds onto HTTP statuses.
func (h *Handler) sendDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attendance.ErrInvalidInput):
		sendJSON(w, http.StatusBadRequest, utils.ErrorResponse("Ticket number and verifier information are required", err.Error()))
	case errors.Is(err, attendance.ErrUnknownTicket):
		sendJSON(w, http.StatusNotFound, utils.ErrorResponse("Invalid ticket number", err.Error()))
	case errors.Is(err, attendance.ErrPaymentIncomplete):
		sendJSON(w, http.StatusBadRequest, utils.ErrorResponse("Ticket payment is not completed", err.Error()))
	case errors.Is(err, attendance.ErrWrongDate):
		sendJSON(w, http.StatusBadRequest, utils.ErrorResponse("Ticket is not valid for today", err.Error()))
	case errors.Is(err, attendance.ErrAlreadyInside):
		sendJSON(w, http.StatusConflict, utils.ErrorResponse("Visitor has already entered and not exited", err.Error()))
	case errors.Is(err, attendance.ErrEntryNotFound):
		sendJSON(w, http.StatusNotFound, utils.ErrorResponse("Entry record not found", err.Error()))
	case errors.Is(err, attendance.ErrAlreadyExited):
		sendJSON(w, http.StatusConflict, utils.ErrorResponse("Visitor has already exited", err.Error()))
	case errors.Is(err, attendance.ErrStorageUnavailable):
		sendJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Storage unavailable, please retry", err.Error()))
	default:
		if h.Logger != nil {
			h.Logger.Error("VISITOR_API", err.Error())
		}
		sendJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Error processing request", err.Error()))
	}
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
