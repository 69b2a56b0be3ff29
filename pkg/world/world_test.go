package world

import (
	"testing"

	"github.com/marklinsim/mcp2515sim/pkg/cs3"
	"github.com/stretchr/testify/assert"
)

func TestTrackPower(t *testing.T) {
	w := New(nil)
	assert.False(t, w.Running())
	w.Go()
	assert.True(t, w.Running())
	w.Stop()
	assert.False(t, w.Running())
}

func TestTrainControl(t *testing.T) {
	w := New(nil)
	w.AddTrain(1)

	w.SetTrainSpeed(1, 9, true)
	speed, light, reversed, ok := w.TrainState(1)
	assert.True(t, ok)
	assert.Equal(t, uint8(9), speed)
	assert.True(t, light)
	assert.False(t, reversed)

	t.Run("reverse stops the train", func(t *testing.T) {
		w.ReverseTrain(1)
		speed, _, reversed, _ := w.TrainState(1)
		assert.Zero(t, speed)
		assert.True(t, reversed)
	})
	t.Run("halt zeroes all speeds", func(t *testing.T) {
		w.SetTrainSpeed(1, 5, false)
		w.Halt()
		speed, _, _, _ := w.TrainState(1)
		assert.Zero(t, speed)
	})
	t.Run("unknown train ignored", func(t *testing.T) {
		w.SetTrainSpeed(99, 5, false)
		_, _, _, ok := w.TrainState(99)
		assert.False(t, ok)
	})
}

func TestSwitches(t *testing.T) {
	w := New(nil)
	_, ok := w.Switch(1)
	assert.False(t, ok)
	w.SetSwitch(1, cs3.SwitchCurve)
	dir, ok := w.Switch(1)
	assert.True(t, ok)
	assert.Equal(t, cs3.SwitchCurve, dir)
}

func TestSensors(t *testing.T) {
	w := New(nil)
	w.AddTrain(1)
	w.AddTrain(2)
	w.SetSensor(1, 42, true)
	w.SetSensor(2, 7, true)

	trains := w.Trains()
	assert.Len(t, trains, 2)
	assert.Equal(t, []uint32{42}, trains[0].TriggeredSensors())
	assert.Equal(t, []uint32{7}, trains[1].TriggeredSensors())

	w.SetSensor(1, 42, false)
	assert.Empty(t, w.Trains()[0].TriggeredSensors())
}
