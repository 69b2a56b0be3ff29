// Package world is a small in-process simulation world : trains,
// track switches and position sensors. It implements the controller
// surface consumed by the CS3 layer and is mainly used by the CLI and
// by tests, a richer simulation can be substituted through the same
// interface.
package world

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/marklinsim/mcp2515sim/pkg/cs3"
)

type train struct {
	speed    uint8
	light    bool
	reversed bool
	sensors  map[uint32]bool
}

// World holds the full simulation state behind one mutex so the CS3
// dispatcher and the sensor poller can share it.
type World struct {
	logger   *slog.Logger
	mu       sync.Mutex
	running  bool
	trains   map[uint32]*train
	switches map[uint32]cs3.SwitchDirection
}

func New(logger *slog.Logger) *World {
	if logger == nil {
		logger = slog.Default()
	}
	return &World{
		logger:   logger.With("service", "[WORLD]"),
		trains:   map[uint32]*train{},
		switches: map[uint32]cs3.SwitchDirection{},
	}
}

// AddTrain registers a train with the given id, idempotent
func (w *World) AddTrain(id uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.trains[id]; !ok {
		w.trains[id] = &train{sensors: map[uint32]bool{}}
	}
}

// SetSensor marks a sensor attached to a train as triggered or not
func (w *World) SetSensor(trainId uint32, sensorId uint32, triggered bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.trains[trainId]
	if !ok {
		return
	}
	if triggered {
		t.sensors[sensorId] = true
	} else {
		delete(t.sensors, sensorId)
	}
}

// Stop cuts track power
func (w *World) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = false
	w.logger.Info("track power off")
}

// Go restores track power
func (w *World) Go() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = true
	w.logger.Info("track power on")
}

// Halt brings every train to a stop but keeps track power
func (w *World) Halt() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.trains {
		t.speed = 0
	}
	w.logger.Info("all trains halted")
}

func (w *World) SetTrainSpeed(trainId uint32, speed uint8, light bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.trains[trainId]
	if !ok {
		w.logger.Warn("unknown train", "train", trainId)
		return
	}
	t.speed = speed
	t.light = light
}

func (w *World) ReverseTrain(trainId uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.trains[trainId]
	if !ok {
		w.logger.Warn("unknown train", "train", trainId)
		return
	}
	t.reversed = !t.reversed
	t.speed = 0
}

func (w *World) SetSwitch(switchId uint32, dir cs3.SwitchDirection) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.switches[switchId] = dir
}

// Trains returns handles onto all registered trains, ordered by id
func (w *World) Trains() []cs3.Train {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]uint32, 0, len(w.trains))
	for id := range w.trains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handles := make([]cs3.Train, 0, len(ids))
	for _, id := range ids {
		handles = append(handles, trainHandle{w: w, id: id})
	}
	return handles
}

type trainHandle struct {
	w  *World
	id uint32
}

// TriggeredSensors implements [cs3.Train]
func (h trainHandle) TriggeredSensors() []uint32 {
	h.w.mu.Lock()
	defer h.w.mu.Unlock()
	t, ok := h.w.trains[h.id]
	if !ok {
		return nil
	}
	ids := make([]uint32, 0, len(t.sensors))
	for id := range t.sensors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Running reports whether track power is on
func (w *World) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// TrainState returns the current speed, light and direction of a train
func (w *World) TrainState(trainId uint32) (speed uint8, light bool, reversed bool, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, found := w.trains[trainId]
	if !found {
		return 0, false, false, false
	}
	return t.speed, t.light, t.reversed, true
}

// Switch returns the last commanded direction of a switch
func (w *World) Switch(switchId uint32) (cs3.SwitchDirection, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	dir, ok := w.switches[switchId]
	return dir, ok
}
