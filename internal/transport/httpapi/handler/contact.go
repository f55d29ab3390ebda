package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kislikjeka/walletsync/internal/platform/contact"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

// ContactHandler serves the caller's contact book
type ContactHandler struct {
	dashboards DashboardSource
	logger     *logger.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(dashboards DashboardSource, log *logger.Logger) *ContactHandler {
	return &ContactHandler{
		dashboards: dashboards,
		logger:     log.WithComponent("http.contacts"),
	}
}

// ContactRequest is the body of create and update
type ContactRequest struct {
	Name           string `json:"name"`
	AccountAddress string `json:"account_address"`
}

// DeleteContactsRequest is the body of a bulk delete
type DeleteContactsRequest struct {
	IDs []string `json:"ids"`
}

// ListContacts handles GET /contacts
func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	d.LoadContacts(r.Context())
	respondJSON(w, contactsView(d.Contacts()), http.StatusOK)
}

// CreateContact handles POST /contacts
func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	var req ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := d.AddContact(r.Context(), req.Name, req.AccountAddress)
	if err != nil {
		respondDomainError(w, r, h.logger, err)
		return
	}
	respondJSON(w, c, http.StatusCreated)
}

// UpdateContact handles PUT /contacts/{id}
func (h *ContactHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	id, ok := contactID(w, r)
	if !ok {
		return
	}

	var req ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := d.UpdateContact(r.Context(), id, req.Name, req.AccountAddress)
	if err != nil {
		respondDomainError(w, r, h.logger, err)
		return
	}
	respondJSON(w, c, http.StatusOK)
}

// DeleteContact handles DELETE /contacts/{id}
func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	id, ok := contactID(w, r)
	if !ok {
		return
	}

	if err := d.DeleteContact(r.Context(), id); err != nil {
		respondDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteContacts handles POST /contacts/delete. Unknown ids are ignored.
func (h *ContactHandler) DeleteContacts(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	var req DeleteContactsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, "invalid contact id: "+raw, http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}

	if err := d.DeleteContacts(r.Context(), ids); err != nil {
		respondDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetContact handles GET /contacts/{id}
func (h *ContactHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	id, ok := contactID(w, r)
	if !ok {
		return
	}

	d.LoadContacts(r.Context())
	c, found := d.FindContactByID(id)
	if !found {
		respondDomainError(w, r, h.logger, contact.ErrContactNotFound)
		return
	}
	respondJSON(w, c, http.StatusOK)
}

func contactID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "invalid contact id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
