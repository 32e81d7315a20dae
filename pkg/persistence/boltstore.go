package persistence

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/busline/pkg/security"
)

var (
	bucketUsers      = []byte("users")
	bucketInventories = []byte("inventories")
	bucketBuildings  = []byte("buildings")
)

// BoltStore implements Store using a single BoltDB file with one
// bucket per entity kind.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) a BoltDB file under dataDir
// and ensures every bucket this package uses exists.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "busline.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("persistence: open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketUsers, bucketInventories, bucketBuildings} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("persistence: create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Seed registers a new user with a freshly allocated, empty inventory.
// Exposed for tests; not part of the Store
// interface, which is deliberately query-shaped rather than CRUD-shaped
// to mirror the bus's Query/QueryResponse surface.
func (s *BoltStore) Seed(user, password string) (uuid.UUID, error) {
	hash, err := security.HashPassword(password)
	if err != nil {
		return uuid.Nil, err
	}

	invID := uuid.New()
	return invID, s.db.Update(func(tx *bolt.Tx) error {
		u := User{Name: user, PasswordHash: hash, InventoryID: invID}
		data, err := json.Marshal(u)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketUsers).Put([]byte(user), data); err != nil {
			return err
		}

		inv := Inventory{ID: invID, User: user}
		data, err = json.Marshal(inv)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketInventories).Put(invID[:], data)
	})
}

func (s *BoltStore) AuthenticateUser(user, password string) (uuid.UUID, error) {
	var u User
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get([]byte(user))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &u)
	})
	if err != nil {
		return uuid.Nil, err
	}

	if !security.VerifyPassword(u.PasswordHash, password) {
		return uuid.Nil, ErrUnauthorized
	}
	return u.InventoryID, nil
}

func (s *BoltStore) ListInventoryIDs() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInventories).ForEach(func(k, v []byte) error {
			var inv Inventory
			if err := json.Unmarshal(v, &inv); err != nil {
				return err
			}
			ids = append(ids, inv.ID)
			return nil
		})
	})
	return ids, err
}

func (s *BoltStore) GetInventoryForUser(user string) (uuid.UUID, error) {
	var u User
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get([]byte(user))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &u)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return u.InventoryID, nil
}

func (s *BoltStore) CreateBuilding(inventoryID uuid.UUID, blueprintSlug string) (uuid.UUID, error) {
	blueprint, ok := defaultBlueprints[blueprintSlug]
	if !ok {
		return uuid.Nil, ErrUnknownBlueprint
	}

	building := Building{
		ID:             uuid.New(),
		InventoryID:    inventoryID,
		BlueprintSlug:  blueprintSlug,
		TicksRemaining: blueprint.BuildTicks,
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		invData := tx.Bucket(bucketInventories).Get(inventoryID[:])
		if invData == nil {
			return ErrNotFound
		}
		var inv Inventory
		if err := json.Unmarshal(invData, &inv); err != nil {
			return err
		}
		inv.Buildings = append(inv.Buildings, building.ID)

		data, err := json.Marshal(inv)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketInventories).Put(inventoryID[:], data); err != nil {
			return err
		}

		data, err = json.Marshal(building)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketBuildings).Put(building.ID[:], data)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return building.ID, nil
}

func (s *BoltStore) ProgressBuildings(inventoryID uuid.UUID) ([]uuid.UUID, error) {
	var completed []uuid.UUID

	err := s.db.Update(func(tx *bolt.Tx) error {
		invData := tx.Bucket(bucketInventories).Get(inventoryID[:])
		if invData == nil {
			return ErrNotFound
		}
		var inv Inventory
		if err := json.Unmarshal(invData, &inv); err != nil {
			return err
		}

		buildings := tx.Bucket(bucketBuildings)
		for _, id := range inv.Buildings {
			data := buildings.Get(id[:])
			if data == nil {
				continue
			}
			var b Building
			if err := json.Unmarshal(data, &b); err != nil {
				return err
			}
			if b.Complete {
				continue
			}

			b.TicksRemaining--
			if b.TicksRemaining <= 0 {
				b.TicksRemaining = 0
				b.Complete = true
				completed = append(completed, b.ID)
			}

			data, err := json.Marshal(b)
			if err != nil {
				return err
			}
			if err := buildings.Put(b.ID[:], data); err != nil {
				return err
			}
		}
		return nil
	})

	return completed, err
}
