// Package config loads the simulator configuration from an ini file.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

type Transport struct {
	Host     string `ini:"host"`
	SPIPort  int    `ini:"spi_port"`
	GPIOPort int    `ini:"gpio_port"`
}

type Device struct {
	PollPeriod     time.Duration `ini:"poll_period"`
	SwitchAckDelay time.Duration `ini:"switch_ack_delay"`
	Backend        string        `ini:"backend"`
	Channel        string        `ini:"channel"`
}

type Config struct {
	Transport Transport
	Device    Device
}

func Default() Config {
	return Config{
		Transport: Transport{
			Host:     "localhost",
			SPIPort:  5555,
			GPIOPort: 5556,
		},
		Device: Device{
			PollPeriod:     100 * time.Millisecond,
			SwitchAckDelay: 20 * time.Millisecond,
		},
	}
}

// Load reads path on top of the defaults. Missing keys keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()
	file, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("could not load config : %w", err)
	}
	if err := file.Section("transport").MapTo(&cfg.Transport); err != nil {
		return cfg, err
	}
	if err := file.Section("device").MapTo(&cfg.Device); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SPIAddr returns the host:port address of the SPI chardev socket
func (t Transport) SPIAddr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.SPIPort)
}

// GPIOAddr returns the host:port address of the GPIO chardev socket
func (t Transport) GPIOAddr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.GPIOPort)
}
