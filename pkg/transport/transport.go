// Package transport ferries bytes between the virtual machine's SPI
// and GPIO chardev sockets and the simulated device. The SPI socket
// carries one response byte per received byte, the GPIO socket carries
// the level of the active-low interrupt line.
package transport

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/marklinsim/mcp2515sim/pkg/device"
)

// Levels written to the GPIO socket. The INT pin is active low.
const (
	levelLow  byte = '0'
	levelHigh byte = '1'
)

// Client connects to the two chardev sockets and drives the device.
// It implements [mcp2515.IntLineListener] so it can be handed to
// [device.New] as the interrupt consumer.
type Client struct {
	logger   *slog.Logger
	spiAddr  string
	gpioAddr string
	device   *device.Device
	spiConn  net.Conn
	gpioConn net.Conn
	gpioMu   sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewClient(spiAddr string, gpioAddr string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger:   logger.With("service", "[TRANSPORT]"),
		spiAddr:  spiAddr,
		gpioAddr: gpioAddr,
	}
}

// Attach the device driven by this client. Must be called before
// Start.
func (c *Client) Attach(d *device.Device) {
	c.device = d
}

// Connect to both chardev sockets
func (c *Client) Connect() error {
	spiConn, err := net.Dial("tcp", c.spiAddr)
	if err != nil {
		return err
	}
	gpioConn, err := net.Dial("tcp", c.gpioAddr)
	if err != nil {
		spiConn.Close()
		return err
	}
	for _, conn := range []net.Conn{spiConn, gpioConn} {
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			if err := tcpConn.SetNoDelay(true); err != nil {
				spiConn.Close()
				gpioConn.Close()
				return err
			}
		}
	}
	c.spiConn = spiConn
	c.gpioConn = gpioConn
	// The line starts de-asserted
	return c.writeLevel(levelHigh)
}

// Disconnect from both sockets
func (c *Client) Disconnect() error {
	var firstErr error
	for _, conn := range []net.Conn{c.spiConn, c.gpioConn} {
		if conn == nil {
			continue
		}
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Start the SPI byte loop, this will run inside of a go routine.
// Call Stop() to stop it or cancel the context.
// Call Wait() to wait for end of execution.
func (c *Client) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
	return nil
}

// Stop the SPI byte loop, idempotent
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Wait for the SPI byte loop to finish (blocking)
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) run(ctx context.Context) {
	c.logger.Info("starting spi byte loop", "addr", c.spiAddr)
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("exited spi byte loop")
			return
		default:
		}
		_ = c.spiConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, err := c.spiConn.Read(buf)
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			continue
		}
		if err != nil {
			c.logger.Error("spi byte loop has closed because", "err", err)
			return
		}
		if n != 1 {
			continue
		}
		rx := c.device.Step(buf[0])
		if _, err := c.spiConn.Write([]byte{rx}); err != nil {
			c.logger.Error("error writing response byte", "err", err)
			return
		}
	}
}

// IntLineChanged forwards interrupt edges to the GPIO socket,
// implements [mcp2515.IntLineListener]. Asserted maps to a low level.
func (c *Client) IntLineChanged(asserted bool) {
	level := levelHigh
	if asserted {
		level = levelLow
	}
	if err := c.writeLevel(level); err != nil {
		c.logger.Warn("error writing gpio level", "err", err)
	}
}

func (c *Client) writeLevel(level byte) error {
	c.gpioMu.Lock()
	defer c.gpioMu.Unlock()
	if c.gpioConn == nil {
		return nil
	}
	_ = c.gpioConn.SetWriteDeadline(time.Now().Add(10 * time.Millisecond))
	_, err := c.gpioConn.Write([]byte{level})
	return err
}
