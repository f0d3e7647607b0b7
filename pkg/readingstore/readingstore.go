// Package readingstore persists sensor readings so their history can be
// queried after the fact.
package readingstore

import (
	"time"

	"github.com/google/uuid"
)

// Reading is a single successful temperature read of a sensor.
type Reading struct {
	ID      int64     `json:"id"`
	PollID  uuid.UUID `json:"pollId"`
	Sensor  string    `json:"sensor"`
	Celsius float64   `json:"celsius"`
	ReadAt  time.Time `json:"readAt"`
}

// Store is a persistent collection of readings.
type Store interface {
	// Add stores the readings of one poll. The ID of each reading is
	// assigned by the store.
	Add(pollID uuid.UUID, readings []Reading) error
	// List returns the newest readings of a sensor, newest first.
	List(sensor string, limit int) ([]Reading, error)
	// Prune deletes all readings older than the given time and returns the
	// number of deleted readings.
	Prune(olderThan time.Time) (int64, error)
	Migrate() error
	Close() error
}
