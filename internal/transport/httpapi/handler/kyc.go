package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kislikjeka/walletsync/internal/platform/kyc"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

// KycHandler serves the caller's KYC fields
type KycHandler struct {
	dashboards DashboardSource
	logger     *logger.Logger
}

// NewKycHandler creates a new KYC handler
func NewKycHandler(dashboards DashboardSource, log *logger.Logger) *KycHandler {
	return &KycHandler{
		dashboards: dashboards,
		logger:     log.WithComponent("http.kyc"),
	}
}

// KycValueRequest is the body of a single field update
type KycValueRequest struct {
	Value string `json:"value"`
}

// KycBatchRequest is the body of a batch update
type KycBatchRequest struct {
	Entries []kyc.Entry `json:"entries"`
}

// ListKyc handles GET /kyc
func (h *KycHandler) ListKyc(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	d.LoadKycData(r.Context())
	respondJSON(w, kycView(d.Kyc()), http.StatusOK)
}

// UpsertKyc handles POST /kyc
func (h *KycHandler) UpsertKyc(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	var req kyc.Entry
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := d.UpsertKyc(r.Context(), req.FieldID, req.Value); err != nil {
		respondDomainError(w, r, h.logger, err)
		return
	}
	respondJSON(w, kycView(d.Kyc()), http.StatusOK)
}

// UpdateKycMany handles PUT /kyc, upserting every entry in one write
func (h *KycHandler) UpdateKycMany(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	var req KycBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := d.UpdateKycMany(r.Context(), req.Entries); err != nil {
		respondDomainError(w, r, h.logger, err)
		return
	}
	respondJSON(w, kycView(d.Kyc()), http.StatusOK)
}

// UpdateKyc handles PUT /kyc/{field}
func (h *KycHandler) UpdateKyc(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	var req KycValueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := d.UpdateKyc(r.Context(), chi.URLParam(r, "field"), req.Value); err != nil {
		respondDomainError(w, r, h.logger, err)
		return
	}
	respondJSON(w, kycView(d.Kyc()), http.StatusOK)
}

// DeleteKyc handles DELETE /kyc/{field}
func (h *KycHandler) DeleteKyc(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	if err := d.DeleteKyc(r.Context(), chi.URLParam(r, "field")); err != nil {
		respondDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearKyc handles DELETE /kyc
func (h *KycHandler) ClearKyc(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	if err := d.ClearKyc(r.Context()); err != nil {
		respondDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

