package poller

import (
	"sort"
	"sync"
	"time"

	"gopkg.in/guregu/null.v4"
)

// Sensor is the latest known state of a sensor.
type Sensor struct {
	ID string `json:"id"`
	// Celsius is null until the sensor has been read successfully.
	Celsius   null.Float  `json:"celsius"`
	ReadAt    null.Time   `json:"readAt"`
	LastError null.String `json:"lastError"`
	ErrorAt   null.Time   `json:"errorAt"`
}

type sensorSet struct {
	mu      sync.RWMutex
	sensors map[string]Sensor
}

func (s *sensorSet) setReading(id string, celsius float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sensor := s.getOrInitLocked(id)
	sensor.Celsius = null.FloatFrom(celsius)
	sensor.ReadAt = null.TimeFrom(at)
	sensor.LastError = null.String{}
	sensor.ErrorAt = null.Time{}
	s.sensors[id] = sensor
}

func (s *sensorSet) setError(id string, err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sensor := s.getOrInitLocked(id)
	sensor.LastError = null.StringFrom(err.Error())
	sensor.ErrorAt = null.TimeFrom(at)
	s.sensors[id] = sensor
}

func (s *sensorSet) getOrInitLocked(id string) Sensor {
	if s.sensors == nil {
		s.sensors = make(map[string]Sensor)
	}
	sensor, ok := s.sensors[id]
	if !ok {
		sensor.ID = id
	}
	return sensor
}

func (s *sensorSet) get(id string) (Sensor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sensor, ok := s.sensors[id]
	return sensor, ok
}

func (s *sensorSet) list() []Sensor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]Sensor, 0, len(s.sensors))
	for _, sensor := range s.sensors {
		list = append(list, sensor)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}
