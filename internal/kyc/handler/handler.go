package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"blocknexus/internal/kyc"
	"blocknexus/pkg/platform/httputil"
	"blocknexus/pkg/requestcontext"
)

// Service is the record store surface the handler needs.
type Service interface {
	AllKYC(ctx context.Context) map[string]kyc.KYCRecord
	AllUsers(ctx context.Context) map[string]kyc.UserRecord
	SaveKYC(ctx context.Context, wallet string, fields map[string]any) (kyc.KYCRecord, error)
	KYC(ctx context.Context, wallet string) (kyc.KYCRecord, bool)
	User(ctx context.Context, wallet string) (kyc.UserRecord, bool)
	UpdateUserKYCStatus(ctx context.Context, wallet string, status kyc.KYCStatus) error
	UpsertUser(ctx context.Context, wallet string, fields map[string]any) (kyc.UserRecord, error)
	DeleteKYC(ctx context.Context, wallet string) error
	Stats(ctx context.Context) kyc.Stats
	ClearAll(ctx context.Context) error
	Export(ctx context.Context) (kyc.Artifact, error)
}

// Handler wires the KYC and user record endpoints to the record store.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public record endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/kyc", h.HandleListKYC)
	r.Get("/kyc/stats", h.HandleStats)
	r.Get("/kyc/export", h.HandleExport)
	r.Post("/kyc/{wallet}", h.HandleSubmitKYC)
	r.Get("/kyc/{wallet}", h.HandleGetKYC)
	r.Delete("/kyc/{wallet}", h.HandleDeleteKYC)

	r.Get("/users", h.HandleListUsers)
	r.Get("/users/{wallet}", h.HandleGetUser)
	r.Patch("/users/{wallet}", h.HandleUpdateProfile)
	r.Put("/users/{wallet}/kyc-status", h.HandleUpdateKYCStatus)
}

// RegisterAdmin mounts destructive endpoints; the caller guards the router.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Delete("/admin/records", h.HandleClearAll)
}

// HandleListKYC handles GET /kyc.
func (h *Handler) HandleListKYC(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.AllKYC(r.Context()))
}

// HandleStats handles GET /kyc/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Stats(r.Context()))
}

// HandleExport handles GET /kyc/export and serves the backup as a download.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	artifact, err := h.service.Export(r.Context())
	if err != nil {
		httputil.WriteError(w, httputil.NewError(http.StatusInternalServerError, "export_failed", "could not export verification data"))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+artifact.Name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Content)
}

// HandleSubmitKYC handles POST /kyc/{wallet}. The body is the submitted document.
func (h *Handler) HandleSubmitKYC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallet, ok := walletParam(w, r)
	if !ok {
		return
	}

	var fields map[string]any
	if err := httputil.DecodeJSON(r, &fields); err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.SaveKYC(ctx, wallet, fields)
	if err != nil {
		h.logger.ErrorContext(ctx, "kyc submission failed",
			"request_id", requestcontext.RequestID(ctx),
			"wallet_address", wallet,
			"error", err,
		)
		httputil.WriteError(w, toHTTPError(err, "could not save verification data"))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

// HandleGetKYC handles GET /kyc/{wallet}.
func (h *Handler) HandleGetKYC(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletParam(w, r)
	if !ok {
		return
	}
	record, found := h.service.KYC(r.Context(), wallet)
	if !found {
		httputil.WriteError(w, httputil.NotFound("kyc record not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleDeleteKYC handles DELETE /kyc/{wallet}.
func (h *Handler) HandleDeleteKYC(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteKYC(r.Context(), wallet); err != nil {
		httputil.WriteError(w, toHTTPError(err, "could not delete verification data"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListUsers handles GET /users.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.AllUsers(r.Context()))
}

// HandleGetUser handles GET /users/{wallet}.
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletParam(w, r)
	if !ok {
		return
	}
	user, found := h.service.User(r.Context(), wallet)
	if !found {
		httputil.WriteError(w, httputil.NotFound("user not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// HandleUpdateProfile handles PATCH /users/{wallet} with partial-update semantics.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletParam(w, r)
	if !ok {
		return
	}
	var fields map[string]any
	if err := httputil.DecodeJSON(r, &fields); err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.service.UpsertUser(r.Context(), wallet, fields)
	if err != nil {
		httputil.WriteError(w, toHTTPError(err, "could not save profile"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// HandleUpdateKYCStatus handles PUT /users/{wallet}/kyc-status.
func (h *Handler) HandleUpdateKYCStatus(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletParam(w, r)
	if !ok {
		return
	}
	var req UpdateKYCStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := req.Parse()
	if err != nil {
		httputil.WriteError(w, toHTTPError(err, ""))
		return
	}
	if err := h.service.UpdateUserKYCStatus(r.Context(), wallet, status); err != nil {
		httputil.WriteError(w, toHTTPError(err, "could not update kyc status"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleClearAll handles DELETE /admin/records.
func (h *Handler) HandleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearAll(r.Context()); err != nil {
		httputil.WriteError(w, toHTTPError(err, "could not clear records"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// walletParam returns the wallet path segment decoded exactly once. chi
// matches on RawPath when it is set, leaving the segment escaped.
func walletParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	wallet := chi.URLParam(r, "wallet")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(wallet)
		if err != nil {
			httputil.WriteError(w, httputil.BadRequest("malformed wallet address"))
			return "", false
		}
		wallet = unescaped
	}
	if wallet == "" {
		httputil.WriteError(w, httputil.BadRequest("wallet address is required"))
		return "", false
	}
	return wallet, true
}

// toHTTPError maps store errors; persistenceMsg is the user-facing text for
// medium failures.
func toHTTPError(err error, persistenceMsg string) error {
	switch {
	case errors.Is(err, kyc.ErrInvalidWallet), errors.Is(err, kyc.ErrInvalidStatus):
		return httputil.BadRequest(err.Error())
	case kyc.IsPersistenceError(err):
		return httputil.NewError(http.StatusInsufficientStorage, "storage_error", persistenceMsg)
	default:
		return err
	}
}
