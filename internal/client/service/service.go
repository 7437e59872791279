package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"clientdesk/internal/client/metrics"
	"clientdesk/internal/client/models"
	id "clientdesk/pkg/domain"
	dErrors "clientdesk/pkg/domain-errors"
	"clientdesk/pkg/platform/sentinel"
	"clientdesk/pkg/requestcontext"
)

const (
	opList    = "list"
	opGet     = "get"
	opCreate  = "create"
	opUpdate  = "update"
	opDelete  = "delete"
	opSeed    = "seed"
	tracerPkg = "clientdesk/internal/client/service"
)

// ClientStore holds the registry state. Check-and-mutate methods must be
// atomic: a conflict or not-found result leaves the store unchanged.
type ClientStore interface {
	CreateIfEmailAvailable(ctx context.Context, d models.Draft) (*models.Client, error)
	UpdateIfEmailAvailable(ctx context.Context, c *models.Client) error
	Delete(ctx context.Context, clientID id.ClientID) error
	List(ctx context.Context) ([]*models.Client, error)
	FindByID(ctx context.Context, clientID id.ClientID) (*models.Client, error)
}

// Service is the client registry: the only code path that changes the
// stored collection.
type Service struct {
	clients ClientStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracerProvider overrides the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(tracerPkg)
	}
}

// New constructs a Service.
func New(clients ClientStore, opts ...Option) *Service {
	s := &Service{clients: clients, tracer: otel.Tracer(tracerPkg)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all clients in registry order.
func (s *Service) List(ctx context.Context) ([]*models.Client, error) {
	ctx, span := s.tracer.Start(ctx, "client.List")
	defer span.End()
	defer s.observe(opList, time.Now())

	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list clients"))
	}
	span.SetAttributes(attribute.Int("client.count", len(clients)))
	return clients, nil
}

// GetByID returns the client with clientID or a not_found error.
func (s *Service) GetByID(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	ctx, span := s.tracer.Start(ctx, "client.GetByID",
		trace.WithAttributes(attribute.Int64("client.id", int64(clientID))))
	defer span.End()
	defer s.observe(opGet, time.Now())

	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get client"))
	}
	return client, nil
}

// Create registers a new client. The registry assigns the id.
// Returns a conflict error wrapping models.ErrDuplicateEmail when the email is
// already used by any client.
func (s *Service) Create(ctx context.Context, d models.Draft) (*models.Client, error) {
	ctx, span := s.tracer.Start(ctx, "client.Create")
	defer span.End()
	defer s.observe(opCreate, time.Now())

	// Use constructor which validates invariants
	draft, err := models.NewDraft(d.Name, d.Email, d.Phone)
	if err != nil {
		return nil, s.fail(span, asValidation(err))
	}

	client, err := s.clients.CreateIfEmailAvailable(ctx, draft)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.rejectDuplicate(ctx, opCreate, draft.Email)
			return nil, s.fail(span, duplicateEmail())
		}
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create client"))
	}

	span.SetAttributes(attribute.Int64("client.id", int64(client.ID)))
	s.logInfo(ctx, "client created", "client_id", client.ID.String())
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	return client, nil
}

// Update replaces every field of the client with c.ID. The id itself never
// changes. Returns not_found for an unknown id and a conflict error wrapping
// models.ErrDuplicateEmail when a different client uses the email.
func (s *Service) Update(ctx context.Context, c *models.Client) (*models.Client, error) {
	if c == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "client is required")
	}
	ctx, span := s.tracer.Start(ctx, "client.Update",
		trace.WithAttributes(attribute.Int64("client.id", int64(c.ID))))
	defer span.End()
	defer s.observe(opUpdate, time.Now())

	// Use constructor which validates invariants
	updated, err := models.NewClient(c.ID, c.Name, c.Email, c.Phone)
	if err != nil {
		return nil, s.fail(span, asValidation(err))
	}

	if err := s.clients.UpdateIfEmailAvailable(ctx, updated); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, s.fail(span, dErrors.New(dErrors.CodeNotFound, "client not found"))
		case errors.Is(err, sentinel.ErrConflict):
			s.rejectDuplicate(ctx, opUpdate, updated.Email)
			return nil, s.fail(span, duplicateEmail())
		default:
			return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update client"))
		}
	}

	s.logInfo(ctx, "client updated", "client_id", updated.ID.String())
	if s.metrics != nil {
		s.metrics.IncrementUpdated()
	}
	return updated, nil
}

// Delete removes the client with clientID. Deleting an unknown id succeeds
// and changes nothing.
func (s *Service) Delete(ctx context.Context, clientID id.ClientID) error {
	ctx, span := s.tracer.Start(ctx, "client.Delete",
		trace.WithAttributes(attribute.Int64("client.id", int64(clientID))))
	defer span.End()
	defer s.observe(opDelete, time.Now())

	err := s.clients.Delete(ctx, clientID)
	if errors.Is(err, sentinel.ErrNotFound) {
		span.SetAttributes(attribute.Bool("client.deleted", false))
		return nil
	}
	if err != nil {
		return s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete client"))
	}

	span.SetAttributes(attribute.Bool("client.deleted", true))
	s.logInfo(ctx, "client deleted", "client_id", clientID.String())
	if s.metrics != nil {
		s.metrics.IncrementDeleted()
	}
	return nil
}

// Seed loads startup records through the create path. Any failure aborts the
// seed; records created before the failure stay.
func (s *Service) Seed(ctx context.Context, drafts ...models.Draft) error {
	defer s.observe(opSeed, time.Now())
	for _, d := range drafts {
		if _, err := s.Create(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed clients")
		}
	}
	s.logInfo(ctx, "clients seeded", "count", len(drafts))
	return nil
}

func duplicateEmail() error {
	return dErrors.Wrap(models.ErrDuplicateEmail, dErrors.CodeConflict, "email address is already in use")
}

// asValidation converts invariant violations to validation errors for API
// responses.
func asValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return err
}

func (s *Service) rejectDuplicate(ctx context.Context, operation, emailAddr string) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "duplicate email rejected",
			"operation", operation,
			"email", emailAddr,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if s.metrics != nil {
		s.metrics.IncrementDuplicate(operation)
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

func (s *Service) logInfo(ctx context.Context, msg string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, msg, attributes...)
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, start)
	}
}
