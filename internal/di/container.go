package di

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/adapters/metrics"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/factory"
	"github.com/mikey/inbox-digest/internal/logging"
	"github.com/mikey/inbox-digest/internal/ports"
	"github.com/mikey/inbox-digest/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := ProvideDigest(container); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(prometheus.NewRegistry); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config, reg *prometheus.Registry) core.Metrics {
		if !cfg.GetMetrics().Enabled {
			return core.NopMetrics{}
		}
		return metrics.NewRecorder(reg)
	}); err != nil {
		return nil, err
	}

	// Register mail source, delivery sink and state repository
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSinkFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStateFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.SourceFactory) (core.MailSource, error) {
		return f.CreateMailSource(context.Background())
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.SinkFactory) (core.DeliverySink, error) {
		return f.CreateDeliverySink()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.StateFactory) (core.StateRepository, error) {
		return f.CreateStateRepository()
	}); err != nil {
		return nil, err
	}

	// Register digest service
	if err := container.Provide(func(f *factory.DigestFactory) (core.ServiceConfig, error) {
		return f.CreateServiceConfig()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewDigestService); err != nil {
		return nil, err
	}

	// Register background workers
	if err := container.Provide(func(
		cfg *config.Config,
		source core.MailSource,
		reg *prometheus.Registry,
		logger *zap.Logger,
	) []ports.Worker {
		var workers []ports.Worker
		if w, ok := source.(ports.Worker); ok {
			workers = append(workers, w)
		}
		if m := cfg.GetMetrics(); m.Enabled {
			workers = append(workers, metrics.NewServer(m.ListenAddress, reg, logger))
		}
		return workers
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// ProvideDigest registers the text processor, scorer and the core pipeline
// pieces. It expects *config.Config and *zap.Logger to be provided.
func ProvideDigest(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}
	if err := container.Provide(factory.NewScorerFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewDigestFactory); err != nil {
		return err
	}

	// Register scorer, nil when disabled
	if err := container.Provide(func(f *factory.ScorerFactory) (core.Scorer, error) {
		return f.CreateScorer(context.Background())
	}); err != nil {
		return err
	}

	// Register pipeline components
	if err := container.Provide(func(f *factory.DigestFactory) (*core.Normalizer, error) {
		return f.CreateNormalizer()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.DigestFactory, scorer core.Scorer) (*core.Classifier, error) {
		return f.CreateClassifier(scorer)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.DigestFactory) (*core.Tracker, error) {
		return f.CreateTracker()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.DigestFactory) (*core.Scheduler, error) {
		return f.CreateScheduler()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.DigestFactory, s *core.Scheduler) (*core.Formatter, error) {
		return f.CreateFormatter(s)
	}); err != nil {
		return err
	}
	return nil
}
