package agent

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gotrike/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActiveRide is the slice of ride state a client keeps on disk so a restart
// can resume watching without asking the user.
type ActiveRide struct {
	RideID  primitive.ObjectID `json:"ride_id"`
	Status  models.RideStatus  `json:"status"`
	SavedAt time.Time          `json:"saved_at"`
}

// ActiveRideStore persists the single active ride to a JSON file.
type ActiveRideStore struct {
	path string
	mu   sync.Mutex
}

func NewActiveRideStore(path string) *ActiveRideStore {
	return &ActiveRideStore{path: path}
}

// Load returns the cached active ride, or nil when none is cached.
func (s *ActiveRideStore) Load() (*ActiveRide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var ride ActiveRide
	if err := json.Unmarshal(data, &ride); err != nil {
		// A corrupt cache is treated as empty rather than wedging the client.
		return nil, nil
	}

	if ride.RideID.IsZero() {
		return nil, nil
	}
	return &ride, nil
}

// Save writes the active ride atomically (temp file + rename).
func (s *ActiveRideStore) Save(rideID primitive.ObjectID, status models.RideStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(&ActiveRide{
		RideID:  rideID,
		Status:  status,
		SavedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the cache. Clearing an already-empty cache is a no-op.
func (s *ActiveRideStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
