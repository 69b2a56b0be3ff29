// Package can holds the registry of CAN bus backends usable by the
// bridge mode of the simulator.
package can

import (
	"fmt"

	mcp2515sim "github.com/marklinsim/mcp2515sim"
)

type NewBusFunc func(channel string) (mcp2515sim.Bus, error)

var availableBackends = make(map[string]NewBusFunc)

// Register a new CAN bus backend type.
// This should be called inside an init() function of the backend.
func RegisterBackend(backendType string, newBus NewBusFunc) {
	availableBackends[backendType] = newBus
}

// Create a new CAN bus with the given backend.
// Currently supported : socketcan, virtual
func NewBus(backendType string, channel string) (mcp2515sim.Bus, error) {
	newBus, ok := availableBackends[backendType]
	if !ok {
		return nil, fmt.Errorf("unsupported backend : %v", backendType)
	}
	return newBus(channel)
}
