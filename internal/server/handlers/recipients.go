package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/triagemhq/triagemd/internal/core"
	"github.com/triagemhq/triagemd/internal/core/store"
	apperrors "github.com/triagemhq/triagemd/internal/errors"
)

// RecipientStore is the persistence surface the recipient CRUD needs.
type RecipientStore interface {
	CreateRecipient(ctx context.Context, r *core.Recipient) error
	GetRecipient(ctx context.Context, id string) (*core.Recipient, error)
	ListRecipients(ctx context.Context, activeOnly bool) ([]core.Recipient, error)
	UpdateRecipient(ctx context.Context, r *core.Recipient) error
	DeleteRecipient(ctx context.Context, id string) error
}

// RecipientsHandler manages the operators notified over WhatsApp.
type RecipientsHandler struct {
	Store    RecipientStore
	Validate *validator.Validate
}

// NewRecipientsHandler builds the handler with a ready validator.
func NewRecipientsHandler(s RecipientStore) *RecipientsHandler {
	return &RecipientsHandler{
		Store:    s,
		Validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type createRecipientRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=120"`
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	Role        string `json:"role" validate:"omitempty,max=60"`
	Active      *bool  `json:"active"`
}

type updateRecipientRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=120"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,e164"`
	Role        *string `json:"role" validate:"omitempty,max=60"`
	Active      *bool   `json:"active"`
}

// Create handles POST /api/v1/recipients.
func (h *RecipientsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRecipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "malformed recipient payload"))
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		respondWithError(w, r, validationEnvelope(r, err))
		return
	}

	recipient := &core.Recipient{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
		Active:      true,
	}
	if req.Active != nil {
		recipient.Active = *req.Active
	}

	if err := h.Store.CreateRecipient(r.Context(), recipient); err != nil {
		if errors.Is(err, store.ErrDuplicatePhone) {
			respondWithError(w, r, apperrors.NewConflictError("phone number already registered"))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "unable to create recipient"))
		return
	}

	writeJSON(w, http.StatusCreated, recipient)
}

// List handles GET /api/v1/recipients. ?active=true filters to active ones.
func (h *RecipientsHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	recipients, err := h.Store.ListRecipients(r.Context(), activeOnly)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "unable to list recipients"))
		return
	}
	if recipients == nil {
		recipients = []core.Recipient{}
	}

	writeJSON(w, http.StatusOK, recipients)
}

// Get handles GET /api/v1/recipients/{id}.
func (h *RecipientsHandler) Get(w http.ResponseWriter, r *http.Request) {
	recipient, ok := h.fetch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, recipient)
}

// Update handles PATCH /api/v1/recipients/{id} with partial payloads.
func (h *RecipientsHandler) Update(w http.ResponseWriter, r *http.Request) {
	recipient, ok := h.fetch(w, r)
	if !ok {
		return
	}

	var req updateRecipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "malformed recipient payload"))
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		respondWithError(w, r, validationEnvelope(r, err))
		return
	}

	if req.Name != nil {
		recipient.Name = *req.Name
	}
	if req.PhoneNumber != nil {
		recipient.PhoneNumber = *req.PhoneNumber
	}
	if req.Role != nil {
		recipient.Role = *req.Role
	}
	if req.Active != nil {
		recipient.Active = *req.Active
	}

	if err := h.Store.UpdateRecipient(r.Context(), recipient); err != nil {
		if errors.Is(err, store.ErrDuplicatePhone) {
			respondWithError(w, r, apperrors.NewConflictError("phone number already registered"))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "unable to update recipient"))
		return
	}

	writeJSON(w, http.StatusOK, recipient)
}

// Delete handles DELETE /api/v1/recipients/{id}.
func (h *RecipientsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteRecipient(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, r, apperrors.NewNotFoundError("recipient not found"))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "unable to delete recipient"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Activate handles POST /api/v1/recipients/{id}/activate.
func (h *RecipientsHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// Deactivate handles POST /api/v1/recipients/{id}/deactivate.
func (h *RecipientsHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *RecipientsHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	recipient, ok := h.fetch(w, r)
	if !ok {
		return
	}

	recipient.Active = active
	if err := h.Store.UpdateRecipient(r.Context(), recipient); err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "unable to update recipient"))
		return
	}

	writeJSON(w, http.StatusOK, recipient)
}

func (h *RecipientsHandler) fetch(w http.ResponseWriter, r *http.Request) (*core.Recipient, bool) {
	id := chi.URLParam(r, "id")

	recipient, err := h.Store.GetRecipient(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, r, apperrors.NewNotFoundError("recipient not found"))
		} else {
			respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "unable to load recipient"))
		}
		return nil, false
	}

	return recipient, true
}

func validationEnvelope(r *http.Request, err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return apperrors.NewValidationError(
			fmt.Sprintf("field %q failed validation rule %q", first.Field(), first.Tag()))
	}
	return apperrors.WrapValidationError(r.Context(), err, "recipient payload failed validation")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
