package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/c2smotors/showroom/internal/models"
	bolt "go.etcd.io/bbolt"
)

var (
	vehiclesBucket = []byte("vehicles")
	vinsBucket     = []byte("vins")
)

// Store persists the vehicle catalog in a BoltDB file. Vehicles keep their
// insertion order under sequence keys, and a VIN index enforces uniqueness.
type Store struct {
	db *bolt.DB
}

// NewStore opens (and if needed initializes) the catalog database at path.
// The database file is created with 0600 permissions if it doesn't exist.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(vehiclesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(vinsBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddVehicle stores a vehicle under the next sequence key. A duplicate VIN is
// rejected.
func (s *Store) AddVehicle(_ context.Context, v models.Vehicle) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		vins := tx.Bucket(vinsBucket)
		if vins.Get([]byte(v.VIN)) != nil {
			return fmt.Errorf("vehicle with vin %s already exists", v.VIN)
		}

		b := tx.Bucket(vehiclesBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		key := []byte(fmt.Sprintf("%012d", seq))

		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal vehicle: %w", err)
		}
		if err := b.Put(key, raw); err != nil {
			return err
		}
		return vins.Put([]byte(v.VIN), key)
	})
}

// Vehicles returns the whole catalog, newest first.
func (s *Store) Vehicles(context.Context) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(vehiclesBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, raw []byte) error {
			var v models.Vehicle
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("failed to unmarshal vehicle: %w", err)
			}
			vehicles = append(vehicles, v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(vehicles)
	return vehicles, nil
}

// Search returns up to limit vehicles matching f, newest first. A limit of
// zero means no cap.
func (s *Store) Search(ctx context.Context, f Filters, limit int) ([]models.Vehicle, error) {
	all, err := s.Vehicles(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Vehicle
	for _, v := range all {
		if !f.Match(v) {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
