package commands

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/inkpress/internal/build"
	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
	"git.home.luguber.info/inful/inkpress/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	NoBundle    bool   `name:"no-bundle" help:"Skip the client and server bundle commands"`
	NoSearch    bool   `name:"no-search" help:"Skip the search indexer"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics in textfile format to this path"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	builder, prom, err := newBuilder(cfg, g.logger(), b.MetricsFile, build.Options{SkipBundle: b.NoBundle, SkipSearch: b.NoSearch})
	if err != nil {
		return err
	}
	report, err := builder.Build(ctx)
	writeMetrics(g.logger(), cfg, prom, b.MetricsFile)
	if report != nil {
		_, _ = fmt.Fprintln(g.out(), report.Summary())
	}
	return err
}

// newBuilder wires a Prometheus recorder when metricsFile is set.
func newBuilder(cfg *config.Config, logger *slog.Logger, metricsFile string, opts build.Options) (*build.Builder, *metrics.PrometheusRecorder, error) {
	var (
		rec  metrics.Recorder = metrics.NoopRecorder{}
		prom *metrics.PrometheusRecorder
	)
	if metricsFile != "" {
		prom = metrics.NewPrometheusRecorder(prometheus.NewRegistry())
		rec = prom
	}
	b, err := build.NewBuilder(cfg, logger, rec)
	if err != nil {
		return nil, nil, err
	}
	b.Options = opts
	return b, prom, nil
}

func writeMetrics(logger *slog.Logger, cfg *config.Config, prom *metrics.PrometheusRecorder, path string) {
	if prom == nil || path == "" {
		return
	}
	path = cfg.Abs(path)
	if err := prom.WriteTextfile(path); err != nil {
		logger.Warn("Could not write metrics textfile", logfields.Path(path), logfields.Error(err))
	}
}
