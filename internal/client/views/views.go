// Package views renders the HTML pages of the client desk: the list, the
// create form and the edit form. Pages call the registry the same way the
// JSON API does and surface duplicate emails as an alert on the form.
package views

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clientdesk/internal/client/handler"
	"clientdesk/internal/client/models"
	"clientdesk/internal/platform/metrics"
	"clientdesk/internal/platform/middleware"
	id "clientdesk/pkg/domain"
	dErrors "clientdesk/pkg/domain-errors"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	alertDuplicateOnCreate = "This email address is already in use."
	alertDuplicateOnUpdate = "This email address is already used by another client."
	alertInternal          = "Something went wrong while saving. Please try again."
)

// Service defines the registry operations the pages need.
type Service interface {
	List(ctx context.Context) ([]*models.Client, error)
	GetByID(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	Create(ctx context.Context, d models.Draft) (*models.Client, error)
	Update(ctx context.Context, c *models.Client) (*models.Client, error)
	Delete(ctx context.Context, clientID id.ClientID) error
}

// Handler serves the HTML pages.
type Handler struct {
	clients Service
	logger  *slog.Logger
	metrics *metrics.Metrics
	pages   map[string]*template.Template
}

type Option func(h *Handler)

// WithMetrics records page latency alongside the API routes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

type listPage struct {
	Title   string
	Clients []*models.Client
}

type formValues struct {
	Name  string
	Email string
	Phone string
}

type formPage struct {
	Title       string
	Action      string
	Values      formValues
	Errors      handler.FieldErrors
	Alert       string
	PhoneLength int
}

type notFoundPage struct {
	Title string
	ID    string
}

// New parses the embedded templates.
func New(clients Service, logger *slog.Logger, opts ...Option) (*Handler, error) {
	pages := make(map[string]*template.Template, 3)
	for _, name := range []string{"list", "form", "notfound"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	h := &Handler{clients: clients, logger: logger, pages: pages}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register wires the three destinations: the list, the new-client form and
// the edit form for one id.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Get("/", h.handleList)
		r.Get("/new", h.handleNewForm)
		r.Post("/new", h.handleCreate)
		r.Get("/edit/{id}", h.handleEditForm)
		r.Post("/edit/{id}", h.handleUpdate)
		r.Post("/delete/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.List(r.Context())
	if err != nil {
		h.serverError(w, r, "failed to list clients", err)
		return
	}
	h.render(w, r, http.StatusOK, "list", listPage{Title: "Clients", Clients: clients})
}

func (h *Handler) handleNewForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "form", newFormPage())
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	page := newFormPage()
	req := handler.CreateClientRequest{
		Name:  r.PostForm.Get("name"),
		Email: r.PostForm.Get("email"),
		Phone: r.PostForm.Get("phone"),
	}
	req.Normalize()
	page.Values = formValues(req)

	if err := req.Validate(); err != nil {
		h.renderInvalid(w, r, page, err)
		return
	}
	if _, err := h.clients.Create(ctx, req.ToDraft()); err != nil {
		h.renderRejected(w, r, page, err, alertDuplicateOnCreate)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleEditForm(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientIDParam(w, r)
	if !ok {
		return
	}
	client, err := h.clients.GetByID(r.Context(), clientID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.render(w, r, http.StatusNotFound, "notfound", notFoundPage{Title: "Client not found", ID: clientID.String()})
			return
		}
		h.serverError(w, r, "failed to load client", err)
		return
	}

	page := editFormPage(clientID)
	page.Values = formValues{Name: client.Name, Email: client.Email, Phone: client.Phone}
	h.render(w, r, http.StatusOK, "form", page)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, ok := h.clientIDParam(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	page := editFormPage(clientID)
	req := handler.UpdateClientRequest{
		Name:  r.PostForm.Get("name"),
		Email: r.PostForm.Get("email"),
		Phone: r.PostForm.Get("phone"),
	}
	req.Normalize()
	page.Values = formValues(req)

	if err := req.Validate(); err != nil {
		h.renderInvalid(w, r, page, err)
		return
	}
	if _, err := h.clients.Update(ctx, req.ToClient(clientID)); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.render(w, r, http.StatusNotFound, "notfound", notFoundPage{Title: "Client not found", ID: clientID.String()})
			return
		}
		h.renderRejected(w, r, page, err, alertDuplicateOnUpdate)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientIDParam(w, r)
	if !ok {
		return
	}
	if err := h.clients.Delete(r.Context(), clientID); err != nil {
		h.serverError(w, r, "failed to delete client", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func newFormPage() formPage {
	return formPage{Title: "New client", Action: "/new", PhoneLength: handler.PhoneLength}
}

func editFormPage(clientID id.ClientID) formPage {
	return formPage{Title: "Edit client", Action: "/edit/" + clientID.String(), PhoneLength: handler.PhoneLength}
}

func (h *Handler) clientIDParam(w http.ResponseWriter, r *http.Request) (id.ClientID, bool) {
	clientID, err := id.ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid client id", http.StatusBadRequest)
		return 0, false
	}
	return clientID, true
}

// renderInvalid re-renders the form with the field problems next to inputs.
func (h *Handler) renderInvalid(w http.ResponseWriter, r *http.Request, page formPage, err error) {
	fe, ok := handler.AsFieldErrors(err)
	if !ok {
		h.serverError(w, r, "failed to validate form", err)
		return
	}
	page.Errors = fe
	h.render(w, r, http.StatusUnprocessableEntity, "form", page)
}

// renderRejected re-renders the form after the registry refused it.
func (h *Handler) renderRejected(w http.ResponseWriter, r *http.Request, page formPage, err error, duplicateAlert string) {
	ctx := r.Context()
	switch {
	case errors.Is(err, models.ErrDuplicateEmail):
		h.logger.InfoContext(ctx, "form rejected: duplicate email",
			"request_id", middleware.GetRequestID(ctx),
		)
		page.Alert = duplicateAlert
		h.render(w, r, http.StatusConflict, "form", page)
	case dErrors.HasCode(err, dErrors.CodeValidation):
		page.Alert = err.Error()
		h.render(w, r, http.StatusUnprocessableEntity, "form", page)
	default:
		h.logger.ErrorContext(ctx, "failed to save client",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		page.Alert = alertInternal
		h.render(w, r, http.StatusInternalServerError, "form", page)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.ErrorContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// render executes into a buffer first so a template failure never leaves a
// half-written page behind a 200.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.serverError(w, r, "failed to render "+page, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
