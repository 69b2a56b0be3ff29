package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	pkgcan "github.com/marklinsim/mcp2515sim/pkg/can"
	_ "github.com/marklinsim/mcp2515sim/pkg/can/socketcan"
	_ "github.com/marklinsim/mcp2515sim/pkg/can/virtual"
	"github.com/marklinsim/mcp2515sim/pkg/config"
	"github.com/marklinsim/mcp2515sim/pkg/device"
	"github.com/marklinsim/mcp2515sim/pkg/transport"
	"github.com/marklinsim/mcp2515sim/pkg/world"
	"gopkg.in/urfave/cli.v2"
)

// Trains present in the demo world
var demoTrains = []uint32{1, 2, 3}

func main() {
	app := &cli.App{
		Name:  "mcp2515sim",
		Usage: "Simulate an MCP2515 CAN controller attached to a Märklin CS3 layout",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "ini configuration file",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "host of the SPI and GPIO chardev sockets",
			},
			&cli.IntFlag{
				Name:  "spi-port",
				Usage: "TCP port of the SPI chardev socket",
			},
			&cli.IntFlag{
				Name:  "gpio-port",
				Usage: "TCP port of the GPIO chardev socket",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "bridge mode : face a CAN bus backend (socketcan, virtual) instead of the SPI sockets",
			},
			&cli.StringFlag{
				Name:  "channel",
				Usage: "bridge mode : CAN channel, e.g. can0 or localhost:18888",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "enable debug logging",
			},
		},
		Action: run,
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}
	if c.IsSet("host") {
		cfg.Transport.Host = c.String("host")
	}
	if c.IsSet("spi-port") {
		cfg.Transport.SPIPort = c.Int("spi-port")
	}
	if c.IsSet("gpio-port") {
		cfg.Transport.GPIOPort = c.Int("gpio-port")
	}
	if c.IsSet("backend") {
		cfg.Device.Backend = c.String("backend")
	}
	if c.IsSet("channel") {
		cfg.Device.Channel = c.String("channel")
	}

	w := world.New(logger)
	for _, id := range demoTrains {
		w.AddTrain(id)
	}

	devCfg := device.Config{
		PollPeriod:     cfg.Device.PollPeriod,
		SwitchAckDelay: cfg.Device.SwitchAckDelay,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Device.Backend != "" {
		return runBridge(ctx, w, cfg, devCfg, logger)
	}
	return runTransport(ctx, w, cfg, devCfg, logger)
}

func runTransport(ctx context.Context, w *world.World, cfg config.Config, devCfg device.Config, logger *slog.Logger) error {
	client := transport.NewClient(cfg.Transport.SPIAddr(), cfg.Transport.GPIOAddr(), logger)
	dev := device.New(w, client, devCfg, logger)
	client.Attach(dev)

	if err := client.Connect(); err != nil {
		return cli.Exit(fmt.Sprintf("could not connect to chardev sockets : %v", err), 1)
	}
	defer client.Disconnect()

	if err := dev.Start(ctx); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := client.Start(ctx); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	<-ctx.Done()
	client.Stop()
	dev.Stop()
	client.Wait()
	dev.Wait()
	return nil
}

func runBridge(ctx context.Context, w *world.World, cfg config.Config, devCfg device.Config, logger *slog.Logger) error {
	bus, err := pkgcan.NewBus(cfg.Device.Backend, cfg.Device.Channel)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := bus.Connect(); err != nil {
		return cli.Exit(fmt.Sprintf("could not connect to CAN bus : %v", err), 1)
	}
	defer bus.Disconnect()

	bridge := device.NewBridge(bus, w, devCfg, logger)
	if err := bridge.Start(ctx); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	<-ctx.Done()
	bridge.Stop()
	bridge.Wait()
	return nil
}
