// Package handler exposes the pass registry over HTTP. Handlers stay thin:
// they authenticate nothing themselves (the middleware answers "who is
// calling") and authorize nothing themselves (the registry answers "may
// this caller do that").
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"passgate/internal/registry/models"
	dErrors "passgate/pkg/domain-errors"
	"passgate/pkg/platform/middleware"

	"passgate/internal/transport/http/shared"
)

// Service defines the registry operations the HTTP layer depends on.
type Service interface {
	IssueSingle(ctx context.Context, caller models.Identity, metadata string) (models.PassID, error)
	IssueBulk(ctx context.Context, caller models.Identity, texts []string) ([]models.PassID, error)
	Revoke(ctx context.Context, caller models.Identity, id models.PassID) error
	Transfer(ctx context.Context, caller models.Identity, id models.PassID, from, to models.Identity) error
	ReturnToIssuer(ctx context.Context, caller models.Identity, id models.PassID) error
	SetNonTransferable(ctx context.Context, caller models.Identity, id models.PassID) error
	Restore(ctx context.Context, caller models.Identity, id models.PassID) error
	Reissue(ctx context.Context, caller models.Identity, id models.PassID) error
	ProcessRefund(ctx context.Context, caller models.Identity, id models.PassID) (models.Identity, error)

	Exists(ctx context.Context, id models.PassID) (bool, error)
	IsValid(ctx context.Context, id models.PassID) (bool, error)
	IsRevoked(ctx context.Context, id models.PassID) (bool, error)
	IsTransferable(ctx context.Context, id models.PassID) (bool, error)
	OwnerOf(ctx context.Context, id models.PassID) (models.Identity, bool, error)
	Details(ctx context.Context, id models.PassID) (*models.Pass, error)
	StatusText(ctx context.Context, id models.PassID) (string, error)
	BulkRecord(ctx context.Context, id models.PassID) (string, error)
	TotalIssued(ctx context.Context) (uint64, error)
	LastIssuedID(ctx context.Context) (models.PassID, error)
	NextID(ctx context.Context) (models.PassID, error)
	Admin() models.Identity
	IsAdmin(identity models.Identity) bool
	BulkLimit() int
	MetadataMaxLen() int
}

// Handler handles pass registry endpoints.
type Handler struct {
	logger    *slog.Logger
	registry  Service
	validator middleware.CallerValidator
}

// New creates a registry Handler.
func New(registry Service, validator middleware.CallerValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		registry:  registry,
		validator: validator,
	}
}

// Register mounts the registry routes on the given router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.RequireAuth(h.validator, h.logger))

	router.Post("/passes", h.handleIssue)
	router.Post("/passes/bulk", h.handleIssueBulk)
	router.Post("/passes/{id}/revoke", h.handleRevoke)
	router.Post("/passes/{id}/transfer", h.handleTransfer)
	router.Post("/passes/{id}/return", h.handleReturn)
	router.Post("/passes/{id}/freeze", h.handleFreeze)
	router.Post("/passes/{id}/restore", h.handleRestore)
	router.Post("/passes/{id}/reissue", h.handleReissue)
	router.Post("/passes/{id}/refund", h.handleRefund)

	router.Get("/passes/{id}", h.handleGetPass)
	router.Get("/passes/{id}/owner", h.handleGetOwner)
	router.Get("/passes/{id}/status", h.handleGetStatus)
	router.Get("/passes/{id}/bulk-record", h.handleGetBulkRecord)
	router.Get("/registry", h.handleRegistryInfo)
	router.Get("/registry/admins/{identity}", h.handleIsAdmin)

	r.Mount("/v1", router)
}

// caller returns the authenticated identity, or writes a 500 when the auth
// middleware is miswired.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	caller := middleware.GetCaller(r.Context())
	if caller == "" {
		h.logger.ErrorContext(r.Context(), "caller missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(r.Context()),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return models.Identity(caller), true
}

// writeServiceError logs and translates a registry failure. Caller faults
// log at warn, infrastructure failures at error.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), op+" failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(r.Context(), op+" rejected",
			"request_id", middleware.GetRequestID(r.Context()),
			"code", string(code),
		)
	}
	shared.WriteError(w, err)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, err := decodeIssueRequest(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	id, err := h.registry.IssueSingle(r.Context(), caller, req.Metadata)
	if err != nil {
		h.writeServiceError(w, r, "issue pass", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, issueResponse{ID: uint64(id)})
}

func (h *Handler) handleIssueBulk(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, err := decodeBulkIssueRequest(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	ids, err := h.registry.IssueBulk(r.Context(), caller, req.Metadata)
	if err != nil {
		h.writeServiceError(w, r, "issue bulk", err)
		return
	}
	raw := make([]uint64, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, uint64(id))
	}
	shared.WriteJSON(w, http.StatusCreated, bulkIssueResponse{IDs: raw})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	h.holderAction(w, r, "revoke pass", h.registry.Revoke)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	h.holderAction(w, r, "return pass", h.registry.ReturnToIssuer)
}

func (h *Handler) handleFreeze(w http.ResponseWriter, r *http.Request) {
	h.holderAction(w, r, "freeze pass", h.registry.SetNonTransferable)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	h.holderAction(w, r, "restore pass", h.registry.Restore)
}

func (h *Handler) handleReissue(w http.ResponseWriter, r *http.Request) {
	h.holderAction(w, r, "reissue pass", h.registry.Reissue)
}

// holderAction factors the shape shared by all single-pass mutations that
// take no body.
func (h *Handler) holderAction(w http.ResponseWriter, r *http.Request, op string,
	action func(ctx context.Context, caller models.Identity, id models.PassID) error) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, err := passIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := action(r.Context(), caller, id); err != nil {
		h.writeServiceError(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, err := passIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, err := decodeTransferRequest(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	err = h.registry.Transfer(r.Context(), caller, id, models.Identity(req.From), models.Identity(req.To))
	if err != nil {
		h.writeServiceError(w, r, "transfer pass", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRefund(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, err := passIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	holder, err := h.registry.ProcessRefund(r.Context(), caller, id)
	if err != nil {
		h.writeServiceError(w, r, "process refund", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, refundResponse{
		Holder:        string(holder),
		HolderPresent: !holder.IsZero(),
	})
}

func (h *Handler) handleGetPass(w http.ResponseWriter, r *http.Request) {
	id, err := passIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	pass, err := h.registry.Details(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get pass", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, passResponse{
		ID:           uint64(pass.ID),
		Metadata:     pass.Metadata,
		Owner:        string(pass.Owner),
		Status:       string(pass.Status()),
		Revoked:      pass.Revoked,
		Transferable: !pass.Revoked,
	})
}

func (h *Handler) handleGetOwner(w http.ResponseWriter, r *http.Request) {
	id, err := passIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	owner, present, err := h.registry.OwnerOf(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get owner", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, ownerResponse{
		Owner:   string(owner),
		Present: present,
	})
}

func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := passIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	ctx := r.Context()
	exists, err := h.registry.Exists(ctx, id)
	if err != nil {
		h.writeServiceError(w, r, "get status", err)
		return
	}
	valid, err := h.registry.IsValid(ctx, id)
	if err != nil {
		h.writeServiceError(w, r, "get status", err)
		return
	}
	revoked, err := h.registry.IsRevoked(ctx, id)
	if err != nil {
		h.writeServiceError(w, r, "get status", err)
		return
	}
	status, err := h.registry.StatusText(ctx, id)
	if err != nil {
		h.writeServiceError(w, r, "get status", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, statusResponse{
		Exists:       exists,
		Valid:        valid,
		Revoked:      revoked,
		Transferable: !revoked,
		Status:       status,
	})
}

func (h *Handler) handleGetBulkRecord(w http.ResponseWriter, r *http.Request) {
	id, err := passIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	record, err := h.registry.BulkRecord(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get bulk record", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, bulkRecordResponse{Record: record})
}

func (h *Handler) handleRegistryInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := h.registry.TotalIssued(ctx)
	if err != nil {
		h.writeServiceError(w, r, "get registry info", err)
		return
	}
	last, err := h.registry.LastIssuedID(ctx)
	if err != nil {
		h.writeServiceError(w, r, "get registry info", err)
		return
	}
	next, err := h.registry.NextID(ctx)
	if err != nil {
		h.writeServiceError(w, r, "get registry info", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, registryResponse{
		Admin:          string(h.registry.Admin()),
		TotalIssued:    total,
		LastIssuedID:   uint64(last),
		NextID:         uint64(next),
		BulkLimit:      h.registry.BulkLimit(),
		MetadataMaxLen: h.registry.MetadataMaxLen(),
	})
}

func (h *Handler) handleIsAdmin(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	if identity == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "identity is required"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, adminCheckResponse{
		Identity: identity,
		Admin:    h.registry.IsAdmin(models.Identity(identity)),
	})
}
