package store

import (
	"context"
	"sync"

	"clientdesk/internal/client/models"
	id "clientdesk/pkg/domain"
	"clientdesk/pkg/email"
	"clientdesk/pkg/platform/sentinel"
)

// InMemory is the client registry state: an ordered collection plus the id
// allocation counter. Each method runs under the lock for its whole body, so
// an email check and the mutation it guards are one step for every caller.
//
// Records are copied on the way in and on the way out; callers never hold a
// pointer into the collection.
type InMemory struct {
	mu      sync.RWMutex
	clients []*models.Client
	nextID  id.ClientID
}

// NewInMemory constructs an empty registry whose first allocated id is 1.
func NewInMemory() *InMemory {
	return &InMemory{nextID: 1}
}

// CreateIfEmailAvailable appends a record built from d and returns it.
// Returns sentinel.ErrConflict without touching the collection or the id
// counter when another record already uses the email.
func (s *InMemory) CreateIfEmailAvailable(_ context.Context, d models.Draft) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOfEmail(email.Key(d.Email), 0) >= 0 {
		return nil, sentinel.ErrConflict
	}

	c := d.WithID(s.nextID)
	s.nextID++
	s.clients = append(s.clients, c)
	return c.Clone(), nil
}

// UpdateIfEmailAvailable replaces the record with the same ID, keeping its
// position. Returns sentinel.ErrNotFound for an unknown ID and
// sentinel.ErrConflict when a different record uses the email.
func (s *InMemory) UpdateIfEmailAvailable(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfID(c.ID)
	if idx < 0 {
		return sentinel.ErrNotFound
	}
	if s.indexOfEmail(c.EmailKey(), c.ID) >= 0 {
		return sentinel.ErrConflict
	}
	s.clients[idx] = c.Clone()
	return nil
}

// Delete removes the record with clientID. Returns sentinel.ErrNotFound when
// there is nothing to remove; the collection is unchanged in that case.
func (s *InMemory) Delete(_ context.Context, clientID id.ClientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfID(clientID)
	if idx < 0 {
		return sentinel.ErrNotFound
	}
	s.clients = append(s.clients[:idx], s.clients[idx+1:]...)
	return nil
}

// List returns copies of all records in collection order.
func (s *InMemory) List(_ context.Context) ([]*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c.Clone())
	}
	return out, nil
}

// FindByID returns a copy of the record with clientID.
func (s *InMemory) FindByID(_ context.Context, clientID id.ClientID) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOfID(clientID)
	if idx < 0 {
		return nil, sentinel.ErrNotFound
	}
	return s.clients[idx].Clone(), nil
}

// indexOfID must be called with the lock held.
func (s *InMemory) indexOfID(clientID id.ClientID) int {
	for i, c := range s.clients {
		if c.ID == clientID {
			return i
		}
	}
	return -1
}

// indexOfEmail finds a record whose email key matches, skipping the record
// with ID except. Pass 0 to check every record. Must be called with the lock
// held.
func (s *InMemory) indexOfEmail(key string, except id.ClientID) int {
	for i, c := range s.clients {
		if c.ID != except && c.EmailKey() == key {
			return i
		}
	}
	return -1
}
