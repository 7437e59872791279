package store

import "clientdesk/internal/client/models"

// SampleClients returns the records the registry starts with. Seeded in
// order into an empty registry they get ids 1 and 2.
func SampleClients() []models.Draft {
	return []models.Draft{
		{Name: "Juan Pérez (Ejemplo)", Email: "juan.perez@email.com", Phone: "5512345678"},
		{Name: "Ana Gómez (Ejemplo)", Email: "ana.gomez@email.com", Phone: "5587654321"},
	}
}
