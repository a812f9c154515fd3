package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/validation"
	dErrors "kycflow/pkg/domain-errors"
	"kycflow/pkg/platform/httputil"
	"kycflow/pkg/requestcontext"
)

// Service defines the onboarding operations the handler exposes.
type Service interface {
	Start(ctx context.Context) (*models.Application, error)
	Get(ctx context.Context, id models.ApplicationID) (*models.Application, error)
	ApplyPersonalInfo(ctx context.Context, id models.ApplicationID, info models.PersonalInfo) (*models.Application, error)
	RecordDocumentUpload(ctx context.Context, id models.ApplicationID, kind models.DocumentKind, meta models.FileMeta) (*models.Application, error)
	RemoveDocument(ctx context.Context, id models.ApplicationID, kind models.DocumentKind) (*models.Application, error)
	DocumentsComplete(ctx context.Context, id models.ApplicationID) (bool, error)
	ApplyAddressInfo(ctx context.Context, id models.ApplicationID, info models.AddressInfo) (*models.Application, error)
	Submit(ctx context.Context, id models.ApplicationID) (*models.Application, error)
}

// Handler wires KYC endpoints to the onboarding service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the KYC endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/kyc", func(r chi.Router) {
		r.Post("/applications", h.HandleStart)
		r.Route("/applications/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/personal", h.HandleApplyPersonal)
			r.Post("/documents", h.HandleUploadDocument)
			r.Get("/documents/complete", h.HandleDocumentsComplete)
			r.Delete("/documents/{kind}", h.HandleRemoveDocument)
			r.Put("/address", h.HandleApplyAddress)
			r.Post("/submit", h.HandleSubmit)
		})
		r.Post("/validate/personal", h.HandleValidatePersonal)
		r.Post("/validate/address", h.HandleValidateAddress)
	})
}

// HandleStart handles POST /kyc/applications.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireApplicant(w, ctx) {
		return
	}
	app, err := h.service.Start(ctx)
	if err != nil {
		h.fail(w, ctx, "failed to start application", err)
		return
	}
	h.logger.InfoContext(ctx, "application started",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", app.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, toApplicationResponse(app))
}

// HandleGet handles GET /kyc/applications/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	app, err := h.service.Get(ctx, id)
	if err != nil {
		h.fail(w, ctx, "failed to load application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

// HandleApplyPersonal handles PUT /kyc/applications/{id}/personal.
func (h *Handler) HandleApplyPersonal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PersonalInfoRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	app, err := h.service.ApplyPersonalInfo(ctx, id, req.Model())
	if err != nil {
		h.fail(w, ctx, "personal info rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

// HandleUploadDocument handles POST /kyc/applications/{id}/documents.
func (h *Handler) HandleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DocumentUploadRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	app, err := h.service.RecordDocumentUpload(ctx, id, req.ParsedKind(), req.FileMeta())
	if err != nil {
		h.fail(w, ctx, "document upload rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

// HandleRemoveDocument handles DELETE /kyc/applications/{id}/documents/{kind}.
func (h *Handler) HandleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	kind, err := models.ParseDocumentKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	app, err := h.service.RemoveDocument(ctx, id, kind)
	if err != nil {
		h.fail(w, ctx, "document removal rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

// HandleDocumentsComplete handles GET /kyc/applications/{id}/documents/complete.
func (h *Handler) HandleDocumentsComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	complete, err := h.service.DocumentsComplete(ctx, id)
	if err != nil {
		h.fail(w, ctx, "failed to check documents", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DocumentsCompleteResponse{Complete: complete})
}

// HandleApplyAddress handles PUT /kyc/applications/{id}/address.
func (h *Handler) HandleApplyAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddressInfoRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	app, err := h.service.ApplyAddressInfo(ctx, id, req.Model())
	if err != nil {
		h.fail(w, ctx, "address rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

// HandleSubmit handles POST /kyc/applications/{id}/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	app, err := h.service.Submit(ctx, id)
	if err != nil {
		h.fail(w, ctx, "submission rejected", err)
		return
	}
	h.logger.InfoContext(ctx, "application submitted",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", app.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusAccepted, toApplicationResponse(app))
}

// HandleValidatePersonal handles POST /kyc/validate/personal. It runs the
// personal rules for live form feedback without touching any application.
func (h *Handler) HandleValidatePersonal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[PersonalInfoRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, validation.Personal(req.Model()))
}

// HandleValidateAddress handles POST /kyc/validate/address.
func (h *Handler) HandleValidateAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AddressInfoRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, validation.Address(req.Model()))
}

func (h *Handler) requireApplicant(w http.ResponseWriter, ctx context.Context) bool {
	if requestcontext.ApplicantID(ctx) == uuid.Nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return false
	}
	return true
}

func (h *Handler) applicationID(w http.ResponseWriter, r *http.Request) (models.ApplicationID, bool) {
	if !h.requireApplicant(w, r.Context()) {
		return models.ApplicationID{}, false
	}
	id, err := models.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return models.ApplicationID{}, false
	}
	return id, true
}

// fail logs at a level matching who is at fault and writes the error.
func (h *Handler) fail(w http.ResponseWriter, ctx context.Context, msg string, err error) {
	args := []any{
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	}
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeTimeout) {
		h.logger.ErrorContext(ctx, msg, args...)
	} else {
		h.logger.WarnContext(ctx, msg, args...)
	}
	httputil.WriteError(w, err)
}
