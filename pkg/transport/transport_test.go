package transport

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	mcp2515sim "github.com/marklinsim/mcp2515sim"
	"github.com/marklinsim/mcp2515sim/pkg/cs3"
	"github.com/marklinsim/mcp2515sim/pkg/device"
	"github.com/marklinsim/mcp2515sim/pkg/mcp2515"
	"github.com/marklinsim/mcp2515sim/pkg/world"
	"github.com/stretchr/testify/assert"
)

// Host side of the two chardev sockets
type fakeHost struct {
	spi  net.Conn
	gpio net.Conn
}

func startClient(t *testing.T) (*Client, *world.World, *fakeHost) {
	t.Helper()
	spiListener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.Nil(t, err)
	gpioListener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.Nil(t, err)

	w := world.New(nil)
	w.AddTrain(1)
	client := NewClient(spiListener.Addr().String(), gpioListener.Addr().String(), nil)
	dev := device.New(w, client, device.Config{}, nil)
	client.Attach(dev)
	assert.Nil(t, client.Connect())

	host := &fakeHost{}
	host.spi, err = spiListener.Accept()
	assert.Nil(t, err)
	host.gpio, err = gpioListener.Accept()
	assert.Nil(t, err)
	spiListener.Close()
	gpioListener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	assert.Nil(t, client.Start(ctx))
	t.Cleanup(func() {
		cancel()
		client.Stop()
		client.Wait()
		client.Disconnect()
		host.spi.Close()
		host.gpio.Close()
	})
	return client, w, host
}

// Exchange a byte sequence over the SPI socket, full duplex
func (h *fakeHost) transfer(t *testing.T, tx []byte) []byte {
	t.Helper()
	_, err := h.spi.Write(tx)
	assert.Nil(t, err)
	rx := make([]byte, len(tx))
	_ = h.spi.SetReadDeadline(time.Now().Add(time.Second))
	_, err = io.ReadFull(h.spi, rx)
	assert.Nil(t, err)
	return rx
}

func (h *fakeHost) gpioLevel(t *testing.T) byte {
	t.Helper()
	buf := make([]byte, 1)
	_ = h.gpio.SetReadDeadline(time.Now().Add(time.Second))
	_, err := io.ReadFull(h.gpio, buf)
	assert.Nil(t, err)
	return buf[0]
}

func TestClientDrivesDevice(t *testing.T) {
	_, w, host := startClient(t)

	// The line starts de-asserted, active low
	assert.Equal(t, byte('1'), host.gpioLevel(t))

	// Enable the RX interrupt
	host.transfer(t, []byte{mcp2515.InstrWrite, mcp2515.RegCANINTE, mcp2515.IntRX0IF})

	// Send a speed command for train 1
	frame := mcp2515sim.Frame{ID: 0x02, DLC: 6, Data: [8]byte{0, 0, 0, 1, 0x01, 0xF4}}
	block := frame.MarshalRxBlock()
	tx := append([]byte{mcp2515.InstrWrite, mcp2515.RegTXB0SIDH}, block[:5+frame.DLC]...)
	rx := host.transfer(t, tx)
	assert.Len(t, rx, len(tx))

	speed, _, _, ok := w.TrainState(1)
	assert.True(t, ok)
	assert.Equal(t, uint8(7), speed)

	// The acknowledgement asserts the interrupt line
	assert.Equal(t, byte('0'), host.gpioLevel(t))

	// Read the acknowledgement back out of RX buffer 0
	readback := append([]byte{mcp2515.InstrRead, mcp2515.RegRXB0SIDH}, make([]byte, 5+frame.DLC)...)
	rx = host.transfer(t, readback)
	ack := mcp2515sim.UnmarshalRxBlock(rx[2:])
	assert.Equal(t, cs3.MakeAck(frame), ack)

	// Handing the buffer back releases the line
	host.transfer(t, []byte{mcp2515.InstrBitModify, mcp2515.RegCANINTF, mcp2515.IntRX0IF, 0x00})
	assert.Equal(t, byte('1'), host.gpioLevel(t))
}

func TestClientReadStatus(t *testing.T) {
	_, _, host := startClient(t)
	assert.Equal(t, byte('1'), host.gpioLevel(t))

	host.transfer(t, []byte{mcp2515.InstrWrite, mcp2515.RegTXB1CTRL, mcp2515.BitTXREQ})
	rx := host.transfer(t, []byte{mcp2515.InstrReadStatus, 0x00})
	assert.Equal(t, byte(1<<4), rx[1])
}
