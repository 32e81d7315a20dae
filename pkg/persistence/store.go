package persistence

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup by name or id finds nothing.
var ErrNotFound = errors.New("persistence: not found")

// ErrUnauthorized is returned by AuthenticateUser on a bad password.
var ErrUnauthorized = errors.New("persistence: unauthorized")

// ErrUnknownBlueprint is returned by CreateBuilding for an unrecognized
// blueprint slug.
var ErrUnknownBlueprint = errors.New("persistence: unknown blueprint")

// Store is the durable backend the persistence gateway actor delegates
// to. Every method must be safe for concurrent use: the gateway calls
// it from several worker goroutines at once.
type Store interface {
	// AuthenticateUser verifies a password and returns the user's
	// inventory id, or ErrUnauthorized / ErrNotFound.
	AuthenticateUser(user, password string) (uuid.UUID, error)

	// ListInventoryIDs returns every inventory id known to the store,
	// in no particular order.
	ListInventoryIDs() ([]uuid.UUID, error)

	// GetInventoryForUser resolves the inventory id owned by user.
	GetInventoryForUser(user string) (uuid.UUID, error)

	// CreateBuilding starts construction of a building from a
	// blueprint within an inventory and returns its new id.
	CreateBuilding(inventoryID uuid.UUID, blueprintSlug string) (uuid.UUID, error)

	// ProgressBuildings advances every in-progress building in an
	// inventory by one tick and returns the ids that completed as a
	// result of this call.
	ProgressBuildings(inventoryID uuid.UUID) ([]uuid.UUID, error)

	// Close releases underlying resources.
	Close() error
}
