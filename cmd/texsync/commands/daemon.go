package commands

import (
	"context"
	"io"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/texsync/internal/app"
	"git.home.luguber.info/inful/texsync/internal/config"
	"git.home.luguber.info/inful/texsync/internal/daemon"
	"git.home.luguber.info/inful/texsync/internal/metrics"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Interval string `help:"Override daemon.interval (e.g. 30m)"`
	HTTPAddr string `name:"http-addr" help:"Override daemon.http_addr"`
}

func (d *DaemonCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if d.Interval != "" {
		cfg.Daemon.Interval = d.Interval
	}
	if d.HTTPAddr != "" {
		cfg.Daemon.HTTPAddr = d.HTTPAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dm, err := daemon.New(cfg, root.Config, pipelineFactory)
	if err != nil {
		return err
	}

	g.Logger.Info("Starting daemon", "interval", cfg.Daemon.Interval, "http_addr", cfg.Daemon.HTTPAddr)
	if err := dm.Run(ctx); err != nil {
		return err
	}
	g.Logger.Info("Daemon stopped")
	return nil
}

func pipelineFactory(ctx context.Context, cfg *config.Config, rec metrics.Recorder) (daemon.JobRunner, io.Closer, error) {
	p, err := app.Build(ctx, cfg, rec)
	if err != nil {
		return nil, nil, err
	}
	return p, p, nil
}
