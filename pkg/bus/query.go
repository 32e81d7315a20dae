package bus

import "github.com/google/uuid"

// Query is the closed set of requests the persistence gateway answers.
type Query interface {
	isQuery()
}

// QueryResponse is the closed set of responses the persistence gateway
// produces. Each variant here answers exactly one Query variant above;
// a mismatch between request and response kind is a Protocol-mismatch
// error (see errors.go) surfaced to the caller.
type QueryResponse interface {
	isQueryResponse()
}

// AuthenticateUser looks up a user by name and verifies a password.
type AuthenticateUser struct {
	User     string
	Password string
}

func (AuthenticateUser) isQuery() {}

// AuthenticateUserResult carries exactly one of InventoryID or Err.
type AuthenticateUserResult struct {
	InventoryID uuid.UUID
	Err         string
}

func (AuthenticateUserResult) isQueryResponse() {}

// ListInventoryIDs lists every inventory id known to the store.
type ListInventoryIDs struct{}

func (ListInventoryIDs) isQuery() {}

// ListInventoryIDsResult carries the full set of known inventory ids.
type ListInventoryIDsResult struct {
	IDs []uuid.UUID
	Err string
}

func (ListInventoryIDsResult) isQueryResponse() {}

// GetInventoryForUser resolves the inventory id owned by a user.
type GetInventoryForUser struct {
	User string
}

func (GetInventoryForUser) isQuery() {}

// GetInventoryForUserResult carries exactly one of InventoryID or Err.
type GetInventoryForUserResult struct {
	InventoryID uuid.UUID
	Err         string
}

func (GetInventoryForUserResult) isQueryResponse() {}

// CreateBuilding persists a new building in an inventory from a blueprint.
type CreateBuilding struct {
	InventoryID   uuid.UUID
	BlueprintSlug string
}

func (CreateBuilding) isQuery() {}

// CreateBuildingResult carries exactly one of BuildingID or Err.
type CreateBuildingResult struct {
	BuildingID uuid.UUID
	Err        string
}

func (CreateBuildingResult) isQueryResponse() {}

// ProgressBuildings advances every in-progress building in an inventory
// by one tick. Issued fire-and-forget by inventory actors on each Tick.
type ProgressBuildings struct {
	InventoryID uuid.UUID
}

func (ProgressBuildings) isQuery() {}

// ProgressBuildingsResult lists the ids of the buildings that completed
// this tick.
type ProgressBuildingsResult struct {
	Completed []uuid.UUID
	Err       string
}

func (ProgressBuildingsResult) isQueryResponse() {}
