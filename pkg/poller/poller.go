// Package poller periodically reads all sensors and publishes the readings to
// metrics, the latest-value cache, and the optional history store.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iver-wharf/temperatures/internal/errutil"
	"github.com/iver-wharf/temperatures/internal/parallel"
	"github.com/iver-wharf/temperatures/pkg/readingstore"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
)

var log = logger.NewScoped("POLLER")

// Bus is a source of sensors.
type Bus interface {
	ListSensors() ([]string, error)
	ReadSensor(id string) (float64, error)
}

// Recorder receives the outcome of every read.
type Recorder interface {
	SetTemperature(sensor string, celsius float64)
	IncReadErrors(sensor string)
	SetPolled(at time.Time, sensors int)
}

// Result is the outcome of a single poll of all sensors.
type Result struct {
	PollID   uuid.UUID
	At       time.Time
	Sensors  []string
	Readings []readingstore.Reading
	Errors   errutil.Slice
}

// Config holds settings for a Poller.
type Config struct {
	// Interval is the duration between polls.
	Interval time.Duration
	// Store is where readings are persisted. May be nil.
	Store readingstore.Store
	// Retention is how old readings may get before they are pruned from
	// the store. Zero disables pruning.
	Retention time.Duration
}

// Poller reads all sensors of a bus on an interval.
type Poller struct {
	bus       Bus
	recorder  Recorder
	store     readingstore.Store
	interval  time.Duration
	retention time.Duration

	now       func() time.Time
	newPollID func() uuid.UUID

	sensors sensorSet

	handlersMu sync.Mutex
	handlers   []func(Result)
}

// New creates a new poller. Call Run to start polling.
func New(bus Bus, recorder Recorder, cfg Config) *Poller {
	return &Poller{
		bus:       bus,
		recorder:  recorder,
		store:     cfg.Store,
		interval:  cfg.Interval,
		retention: cfg.Retention,
		now:       time.Now,
		newPollID: uuid.New,
	}
}

// OnPoll adds a function that is called after each poll.
func (p *Poller) OnPoll(f func(Result)) {
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()
	p.handlers = append(p.handlers, f)
}

// Sensors returns the latest state of all sensors seen so far, sorted by ID.
func (p *Poller) Sensors() []Sensor {
	return p.sensors.list()
}

// Sensor returns the latest state of a single sensor.
func (p *Poller) Sensor(id string) (Sensor, bool) {
	return p.sensors.get(id)
}

// Run polls once immediately and then once per interval, until the context
// is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("invalid poll interval: %s", p.interval)
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Info().WithDuration("interval", p.interval).Message("Starting poller.")
	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Message("Stopped poller.")
			return nil
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll reads all sensors once. Failing to read one sensor does not affect
// reading the others.
func (p *Poller) Poll(ctx context.Context) Result {
	res := Result{
		PollID: p.newPollID(),
		At:     p.now(),
	}
	ids, err := p.bus.ListSensors()
	if err != nil {
		log.Error().WithError(err).Message("Failed to read devices directory.")
		res.Errors.Add(err)
		p.notify(res)
		return res
	}
	res.Sensors = ids

	var mu sync.Mutex
	var group parallel.Group
	for _, id := range ids {
		id := id
		group.AddFunc(id, func(context.Context) error {
			celsius, err := p.bus.ReadSensor(id)
			at := p.now()
			if err != nil {
				log.Error().WithString("sensor", id).WithError(err).
					Message("Failed to read temperature.")
				p.recorder.IncReadErrors(id)
				p.sensors.setError(id, err, at)
				return err
			}
			log.Info().WithString("sensor", id).
				WithStringf("celsius", "%.3f", celsius).
				Message("Read temperature.")
			p.recorder.SetTemperature(id, celsius)
			p.sensors.setReading(id, celsius, at)
			mu.Lock()
			res.Readings = append(res.Readings, readingstore.Reading{
				PollID:  res.PollID,
				Sensor:  id,
				Celsius: celsius,
				ReadAt:  at,
			})
			mu.Unlock()
			return nil
		})
	}
	res.Errors.Add(group.RunAll(ctx)...)
	sort.Slice(res.Readings, func(i, j int) bool {
		return res.Readings[i].Sensor < res.Readings[j].Sensor
	})

	p.recorder.SetPolled(res.At, len(ids))
	p.persist(res)
	p.notify(res)
	return res
}

func (p *Poller) persist(res Result) {
	if p.store == nil {
		return
	}
	if err := p.store.Add(res.PollID, res.Readings); err != nil {
		log.Error().WithError(err).
			WithStringer("poll", res.PollID).
			Message("Failed to store readings.")
	}
	if p.retention <= 0 {
		return
	}
	deleted, err := p.store.Prune(res.At.Add(-p.retention))
	if err != nil {
		log.Warn().WithError(err).Message("Failed to prune old readings.")
		return
	}
	if deleted > 0 {
		log.Debug().WithInt("deleted", int(deleted)).
			WithDuration("retention", p.retention).
			Message("Pruned old readings.")
	}
}

func (p *Poller) notify(res Result) {
	p.handlersMu.Lock()
	handlers := append([]func(Result){}, p.handlers...)
	p.handlersMu.Unlock()
	for _, f := range handlers {
		f(res)
	}
}

// ErrNoSensors is returned by ReadAll when no sensors were found.
var ErrNoSensors = errors.New("no sensors found")

// ReadAll polls once without metrics or a store, for one-shot reads. The
// state of every found sensor is returned, even if some reads failed.
func ReadAll(ctx context.Context, bus Bus) ([]Sensor, error) {
	p := New(bus, nopRecorder{}, Config{})
	res := p.Poll(ctx)
	if err := res.Errors.Err(); err != nil {
		return p.Sensors(), err
	}
	if len(res.Sensors) == 0 {
		return nil, ErrNoSensors
	}
	return p.Sensors(), nil
}

type nopRecorder struct{}

func (nopRecorder) SetTemperature(string, float64) {}
func (nopRecorder) IncReadErrors(string)           {}
func (nopRecorder) SetPolled(time.Time, int)       {}
