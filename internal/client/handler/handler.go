package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clientdesk/internal/client/models"
	"clientdesk/internal/platform/metrics"
	"clientdesk/internal/platform/middleware"
	id "clientdesk/pkg/domain"
	dErrors "clientdesk/pkg/domain-errors"
	"clientdesk/pkg/platform/httputil"
)

const maxBodyBytes = 1 << 20

// Service defines the client registry operations the API needs.
type Service interface {
	List(ctx context.Context) ([]*models.Client, error)
	GetByID(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	Create(ctx context.Context, d models.Draft) (*models.Client, error)
	Update(ctx context.Context, c *models.Client) (*models.Client, error)
	Delete(ctx context.Context, clientID id.ClientID) error
}

// ListClientsResponse is the body of GET /api/clients.
type ListClientsResponse struct {
	Clients []*models.Client `json:"clients"`
	Total   int              `json:"total"`
}

// Handler serves the JSON client API.
type Handler struct {
	clients Service
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

type Option func(h *Handler)

// WithMetrics enables request latency recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithTimeout overrides the per-request timeout (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.timeout = d
	}
}

// New creates a new client API Handler.
func New(clients Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{clients: clients, logger: logger, timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API under /api/clients.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(middleware.Timeout(h.timeout))
	api.Use(middleware.ContentTypeJSON)
	api.Use(middleware.LatencyMiddleware(h.metrics))
	api.Get("/", h.handleList)
	api.Post("/", h.handleCreate)
	api.Get("/{id}", h.handleGet)
	api.Put("/{id}", h.handleUpdate)
	api.Delete("/{id}", h.handleDelete)

	r.Mount("/api/clients", api)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clients, err := h.clients.List(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list clients", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListClientsResponse{Clients: clients, Total: len(clients)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, ok := h.clientIDParam(w, r)
	if !ok {
		return
	}

	client, err := h.clients.GetByID(ctx, clientID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to get client", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, client)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateClientRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "invalid create client request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	client, err := h.clients.Create(ctx, req.ToDraft())
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create client", err)
		return
	}
	w.Header().Set("Location", "/api/clients/"+client.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, client)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, ok := h.clientIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateClientRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "invalid update client request",
			"request_id", middleware.GetRequestID(ctx),
			"client_id", clientID.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	client, err := h.clients.Update(ctx, req.ToClient(clientID))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to update client", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, client)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, ok := h.clientIDParam(w, r)
	if !ok {
		return
	}

	if err := h.clients.Delete(ctx, clientID); err != nil {
		h.writeServiceError(ctx, w, "failed to delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clientIDParam(w http.ResponseWriter, r *http.Request) (id.ClientID, bool) {
	clientID, err := id.ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return clientID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, "invalid request body",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// writeServiceError logs unexpected failures at error level and expected
// outcomes (not found, conflict) at warn level.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
