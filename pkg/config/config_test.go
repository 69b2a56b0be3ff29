package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "localhost:5555", cfg.Transport.SPIAddr())
	assert.Equal(t, "localhost:5556", cfg.Transport.GPIOAddr())
	assert.Equal(t, 100*time.Millisecond, cfg.Device.PollPeriod)
	assert.Equal(t, 20*time.Millisecond, cfg.Device.SwitchAckDelay)
	assert.Empty(t, cfg.Device.Backend)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.ini")
	content := `
[transport]
host = vmhost
spi_port = 7777

[device]
poll_period = 250ms
backend = socketcan
channel = can0
`
	assert.Nil(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	assert.Nil(t, err)
	assert.Equal(t, "vmhost:7777", cfg.Transport.SPIAddr())
	// Missing keys keep their default
	assert.Equal(t, "vmhost:5556", cfg.Transport.GPIOAddr())
	assert.Equal(t, 250*time.Millisecond, cfg.Device.PollPeriod)
	assert.Equal(t, 20*time.Millisecond, cfg.Device.SwitchAckDelay)
	assert.Equal(t, "socketcan", cfg.Device.Backend)
	assert.Equal(t, "can0", cfg.Device.Channel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does-not-exist.ini")
	assert.NotNil(t, err)
}
