package persistence

import "github.com/google/uuid"

// User is a registered account. PasswordHash is opaque to this package;
// hashing and verification belong to pkg/security.
type User struct {
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	InventoryID  uuid.UUID `json:"inventory_id"`
}

// Inventory is the set of buildings owned by one user.
type Inventory struct {
	ID   uuid.UUID   `json:"id"`
	User string      `json:"user"`
	Buildings []uuid.UUID `json:"buildings"`
}

// Building is a single structure under construction or completed within
// an inventory.
type Building struct {
	ID            uuid.UUID `json:"id"`
	InventoryID   uuid.UUID `json:"inventory_id"`
	BlueprintSlug string    `json:"blueprint_slug"`
	TicksRemaining int      `json:"ticks_remaining"`
	Complete      bool      `json:"complete"`
}

// Blueprint describes a buildable structure. The catalog is a fixed,
// package-level table; it is not stored in the database.
type Blueprint struct {
	Slug       string `json:"slug"`
	BuildTicks int    `json:"build_ticks"`
}

// defaultBlueprints is the small fixed catalog CreateBuilding looks
// slugs up in; a minimal built-in set keeps CreateBuilding exercisable
// end to end.
var defaultBlueprints = map[string]Blueprint{
	"hut":      {Slug: "hut", BuildTicks: 3},
	"farm":     {Slug: "farm", BuildTicks: 5},
	"barracks": {Slug: "barracks", BuildTicks: 8},
}
