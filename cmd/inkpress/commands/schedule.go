package commands

import (
	"context"

	"git.home.luguber.info/inful/inkpress/internal/build"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
)

// ScheduleCmd implements the 'schedule' command.
type ScheduleCmd struct {
	Cron        string `required:"" help:"Cron expression (five fields) for rebuilds"`
	Now         bool   `help:"Run one build immediately before waiting for the schedule"`
	NoSearch    bool   `name:"no-search" help:"Skip the search indexer"`
	MetricsFile string `name:"metrics-file" help:"Rewrite Prometheus metrics in textfile format after every build"`
}

func (s *ScheduleCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	logger := g.logger()
	builder, prom, err := newBuilder(cfg, logger, s.MetricsFile, build.Options{SkipSearch: s.NoSearch})
	if err != nil {
		return err
	}
	run := func(ctx context.Context) error {
		_, err := builder.Build(ctx)
		writeMetrics(logger, cfg, prom, s.MetricsFile)
		return err
	}

	sched, err := build.NewScheduler(logger)
	if err != nil {
		return err
	}
	id, err := sched.ScheduleBuild(ctx, s.Cron, run)
	if err != nil {
		return err
	}
	logger.Info("Scheduled builds", logfields.Schedule(s.Cron), "job", id)

	if s.Now {
		if err := run(ctx); err != nil {
			logger.Error("Initial build failed", logfields.Error(err))
		}
	}
	sched.Start()
	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping scheduler")
	return sched.Stop()
}
