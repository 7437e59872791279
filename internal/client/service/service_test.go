package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ClientStore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"clientdesk/internal/client/metrics"
	"clientdesk/internal/client/models"
	"clientdesk/internal/client/service/mocks"
	"clientdesk/internal/client/store"
	id "clientdesk/pkg/domain"
	dErrors "clientdesk/pkg/domain-errors"
	"clientdesk/pkg/platform/sentinel"
	"clientdesk/pkg/requestcontext"
)

// ServiceSuite runs the registry against the real in-memory store, seeded the
// way the server seeds it at startup.
type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	service *Service
	metrics *metrics.Metrics
	spans   *tracetest.SpanRecorder
	logs    *bytes.Buffer
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithRequestID(context.Background(), "req-test")
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.spans = tracetest.NewSpanRecorder()
	s.logs = &bytes.Buffer{}

	s.service = New(store.NewInMemory(),
		WithLogger(slog.New(slog.NewTextHandler(s.logs, nil))),
		WithMetrics(s.metrics),
		WithTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(s.spans))),
	)
	s.Require().NoError(s.service.Seed(s.ctx, store.SampleClients()...))
}

func (s *ServiceSuite) list() []*models.Client {
	all, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	return all
}

// TestScenarios covers the registry's documented walk-through against the
// seed data.
func (s *ServiceSuite) TestScenarios() {
	s.Run("create with an existing email in different case fails", func() {
		_, err := s.service.Create(s.ctx, models.Draft{Name: "Lola", Email: "JUAN.PEREZ@email.com", Phone: "555"})
		s.Require().ErrorIs(err, models.ErrDuplicateEmail)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Len(s.list(), 2)
	})

	s.Run("create with a new email gets the next id", func() {
		c, err := s.service.Create(s.ctx, models.Draft{Name: "Lola", Email: "lola@email.com", Phone: "555"})
		s.Require().NoError(err)
		s.Equal(id.ClientID(3), c.ID)
		s.Len(s.list(), 3)
	})

	s.Run("update keeping own email succeeds", func() {
		_, err := s.service.Update(s.ctx, &models.Client{ID: 2, Name: "Ana G.", Email: "ana.gomez@email.com", Phone: "555"})
		s.Require().NoError(err)

		c, err := s.service.GetByID(s.ctx, 2)
		s.Require().NoError(err)
		s.Equal("Ana G.", c.Name)
	})

	s.Run("update taking another client's email fails", func() {
		before, err := s.service.GetByID(s.ctx, 2)
		s.Require().NoError(err)

		_, err = s.service.Update(s.ctx, &models.Client{ID: 2, Name: "Ana", Email: "juan.perez@email.com", Phone: "555"})
		s.Require().ErrorIs(err, models.ErrDuplicateEmail)

		after, err := s.service.GetByID(s.ctx, 2)
		s.Require().NoError(err)
		s.Equal(before, after)
	})

	s.Run("delete of a missing id is a no-op", func() {
		before := s.list()
		s.Require().NoError(s.service.Delete(s.ctx, 999))
		s.Equal(before, s.list())
	})

	s.Run("get by id hits and misses", func() {
		c, err := s.service.GetByID(s.ctx, 1)
		s.Require().NoError(err)
		s.Equal("juan.perez@email.com", c.Email)

		_, err = s.service.GetByID(s.ctx, 50)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestUniqueness checks that no sequence of successful creates and updates
// leaves two clients with equal emails.
func (s *ServiceSuite) TestUniqueness() {
	addrs := []string{"a@x.com", "A@X.com", "b@x.com", "B@x.COM", "c@x.com", "juan.perez@EMAIL.com"}
	for i, addr := range addrs {
		_, _ = s.service.Create(s.ctx, models.Draft{Name: fmt.Sprintf("c%d", i), Email: addr, Phone: "1"})
	}
	for _, c := range s.list() {
		_, _ = s.service.Update(s.ctx, &models.Client{ID: c.ID, Name: c.Name, Email: "a@x.com", Phone: c.Phone})
	}

	seen := map[string]id.ClientID{}
	for _, c := range s.list() {
		owner, dup := seen[c.EmailKey()]
		s.False(dup, "email %s owned by %d and %d", c.Email, owner, c.ID)
		seen[c.EmailKey()] = c.ID
	}
	s.Len(seen, 5)
}

// TestUpdate covers id immutability and the unknown-id policy.
func (s *ServiceSuite) TestUpdate() {
	s.Run("id is never changed", func() {
		updated, err := s.service.Update(s.ctx, &models.Client{ID: 1, Name: "Juan", Email: "juan@email.com", Phone: "1"})
		s.Require().NoError(err)
		s.Equal(id.ClientID(1), updated.ID)

		all := s.list()
		s.Equal(id.ClientID(1), all[0].ID, "position and id are preserved")
		s.Equal("juan@email.com", all[0].Email)
	})

	s.Run("unknown id returns not found and changes nothing", func() {
		before := s.list()
		_, err := s.service.Update(s.ctx, &models.Client{ID: 77, Name: "Ghost", Email: "ghost@email.com", Phone: "1"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(before, s.list())
	})

	s.Run("blank name is a validation error", func() {
		_, err := s.service.Update(s.ctx, &models.Client{ID: 1, Name: " ", Email: "juan@email.com", Phone: "1"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("nil client is a bad request", func() {
		_, err := s.service.Update(s.ctx, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

// TestCreateNormalizesInput verifies surrounding whitespace never reaches the
// store and cannot be used to dodge the uniqueness check.
func (s *ServiceSuite) TestCreateNormalizesInput() {
	_, err := s.service.Create(s.ctx, models.Draft{Name: "Juan", Email: "  juan.perez@email.com ", Phone: "1"})
	s.Require().ErrorIs(err, models.ErrDuplicateEmail)

	c, err := s.service.Create(s.ctx, models.Draft{Name: "  Lola  ", Email: " Lola@Email.com ", Phone: " 5550001111 "})
	s.Require().NoError(err)
	s.Equal("Lola", c.Name)
	s.Equal("Lola@Email.com", c.Email)
	s.Equal("5550001111", c.Phone)

	_, err = s.service.Create(s.ctx, models.Draft{Name: "", Email: "x@email.com"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// TestReadPurity verifies repeated reads with no mutation in between agree.
func (s *ServiceSuite) TestReadPurity() {
	first := s.list()
	first[0].Name = "edited by caller"
	s.Equal(s.list(), s.list())
	s.Equal("Juan Pérez (Ejemplo)", s.list()[0].Name)
}

// TestObservability verifies metrics, spans and logs for mutations.
func (s *ServiceSuite) TestObservability() {
	_, err := s.service.Create(s.ctx, models.Draft{Name: "Dup", Email: "ana.gomez@email.com", Phone: "1"})
	s.Require().Error(err)
	s.Require().NoError(s.service.Delete(s.ctx, 1))

	s.Equal(2.0, promtest.ToFloat64(s.metrics.ClientsCreated), "seed goes through create")
	s.Equal(1.0, promtest.ToFloat64(s.metrics.ClientsDeleted))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.DuplicateRejections.WithLabelValues("create")))

	var failed []string
	for _, span := range s.spans.Ended() {
		if span.Status().Code == codes.Error {
			failed = append(failed, span.Name())
		}
	}
	s.Equal([]string{"client.Create"}, failed)

	s.Contains(s.logs.String(), "duplicate email rejected")
	s.Contains(s.logs.String(), "request_id=req-test")
}

// StoreFailureSuite drives the service with a mocked store to cover
// infrastructure failures the in-memory store never produces.
type StoreFailureSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockClientStore
	service *Service
}

func TestStoreFailureSuite(t *testing.T) {
	suite.Run(t, new(StoreFailureSuite))
}

func (s *StoreFailureSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockClientStore(s.ctrl)
	s.service = New(s.store)
}

func (s *StoreFailureSuite) TestInternalErrors() {
	ctx := context.Background()
	errBoom := errors.New("boom")

	s.Run("list", func() {
		s.store.EXPECT().List(gomock.Any()).Return(nil, errBoom)
		_, err := s.service.List(ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.ErrorIs(err, errBoom)
	})

	s.Run("create", func() {
		s.store.EXPECT().CreateIfEmailAvailable(gomock.Any(), gomock.Any()).Return(nil, errBoom)
		_, err := s.service.Create(ctx, models.Draft{Name: "a", Email: "a@x.com"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("update", func() {
		s.store.EXPECT().UpdateIfEmailAvailable(gomock.Any(), gomock.Any()).Return(errBoom)
		_, err := s.service.Update(ctx, &models.Client{ID: 1, Name: "a", Email: "a@x.com"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("delete", func() {
		s.store.EXPECT().Delete(gomock.Any(), id.ClientID(1)).Return(errBoom)
		err := s.service.Delete(ctx, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("get", func() {
		s.store.EXPECT().FindByID(gomock.Any(), id.ClientID(1)).Return(nil, errBoom)
		_, err := s.service.GetByID(ctx, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *StoreFailureSuite) TestSeedStopsOnFirstFailure() {
	drafts := store.SampleClients()
	s.store.EXPECT().CreateIfEmailAvailable(gomock.Any(), drafts[0]).Return(nil, sentinel.ErrConflict)

	err := s.service.Seed(context.Background(), drafts...)
	s.Require().Error(err)
	s.ErrorIs(err, models.ErrDuplicateEmail)
}
