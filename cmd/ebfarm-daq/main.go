// Command ebfarm-daq runs one event-builder node of the DAQ farm.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/daqforge/ebfarm/app/daq"
	"github.com/daqforge/ebfarm/core/logging"
	"github.com/daqforge/ebfarm/mk/version"
	"github.com/daqforge/ebfarm/netring"
)

var logger = logging.New("main")

var app = &cli.App{
	Name:    "ebfarm-daq",
	Usage:   "Run an event-builder node of the DAQ farm.",
	Version: version.Get().String(),
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Usage:    "JSON configuration `file`",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "ifname",
			Usage: "receive on AF_PACKET ring bound to `netif` (requires CAP_NET_RAW)",
		},
		&cli.UintFlag{
			Name:  "fanout",
			Usage: "PACKET_FANOUT group `id` shared by the workers",
			Value: 4242,
		},
		&cli.DurationFlag{
			Name:  "stats-interval",
			Usage: "how often to log a counters snapshot",
			Value: 30 * time.Second,
		},
	},
	Action: run,
}

func run(c *cli.Context) error {
	j, e := os.ReadFile(c.String("config"))
	if e != nil {
		return e
	}
	cfg, e := daq.DecodeConfig(j)
	if e != nil {
		return fmt.Errorf("config: %w", e)
	}

	opts := daq.Options{}
	if ifname := c.String("ifname"); ifname != "" {
		opts.NewRing = newAfPacketFactory(ifname, uint16(c.Uint("fanout")))
	} else {
		opts.NewRing = func(int) (netring.Ring, error) {
			return netring.NewUDPRing(netring.UDPRingConfig{
				Host:  cfg.HostIP,
				Ports: []uint16{cfg.Ports.L0, cfg.Ports.LKr, cfg.Ports.Straw, cfg.Ports.EOB},
			})
		}
	}

	p, e := daq.New(cfg, opts)
	if e != nil {
		return e
	}
	defer p.Close()
	p.Launch()
	daemon.SdNotify(false, daemon.SdNotifyReady)

	ticker := time.NewTicker(c.Duration("stats-interval"))
	defer ticker.Stop()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, unix.SIGINT, unix.SIGTERM)

	for {
		select {
		case sig := <-interrupt:
			logger.Info("shutting down", zap.String("signal", sig.String()))
			daemon.SdNotify(false, daemon.SdNotifyStopping)
			return nil
		case e := <-p.Errors():
			daemon.SdNotify(false, daemon.SdNotifyStopping)
			return e
		case <-ticker.C:
			logger.Info("counters", zap.Stringer("cnt", p.Counters().ReadCounters()))
		}
	}
}

func main() {
	e := app.Run(os.Args)
	if e != nil {
		logger.Fatal("fatal error", zap.Error(e))
	}
}
