// Package backend opens the storage driver, event publisher and worker pool
// that the sift commands share, based on the resolved configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/papercomputeco/sift/ingest/worker"
	"github.com/papercomputeco/sift/pkg/eventstream"
	"github.com/papercomputeco/sift/pkg/eventstream/kafka"
	"github.com/papercomputeco/sift/pkg/eventstream/nop"
	"github.com/papercomputeco/sift/pkg/logger"
	"github.com/papercomputeco/sift/pkg/storage"
	"github.com/papercomputeco/sift/pkg/storage/inmemory"
	"github.com/papercomputeco/sift/pkg/storage/postgres"
	"github.com/papercomputeco/sift/pkg/storage/sqlite"
)

// Settings selects the backends. PostgresDSN wins over SQLitePath; with
// neither set, records are kept in memory.
type Settings struct {
	SQLitePath  string
	PostgresDSN string

	// KafkaBrokers is a comma separated broker list. Empty disables publishing.
	KafkaBrokers string
	KafkaTopic   string

	Workers    uint
	BufferSize uint
}

// SettingsFromViper reads Settings from the storage, publish and ingest keys.
func SettingsFromViper(v *viper.Viper) Settings {
	return Settings{
		SQLitePath:   v.GetString("storage.sqlite_path"),
		PostgresDSN:  v.GetString("storage.postgres_dsn"),
		KafkaBrokers: v.GetString("publish.kafka_brokers"),
		KafkaTopic:   v.GetString("publish.kafka_topic"),
		Workers:      v.GetUint("ingest.workers"),
		BufferSize:   v.GetUint("ingest.buffer_size"),
	}
}

// Brokers splits KafkaBrokers into addresses.
func (s Settings) Brokers() []string {
	var brokers []string
	for b := range strings.SplitSeq(s.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Backend bundles the opened resources.
type Backend struct {
	Driver    storage.Driver
	Publisher eventstream.Publisher
	Pool      *worker.Pool

	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// Open creates the driver and publisher named by s and starts a worker pool
// over them.
func Open(ctx context.Context, s Settings, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = logger.Nop()
	}

	driver, err := openDriver(ctx, s, log)
	if err != nil {
		return nil, err
	}

	publisher, err := openPublisher(s, log)
	if err != nil {
		driver.Close()
		return nil, err
	}

	pool, err := worker.NewPool(&worker.Config{
		Driver:     driver,
		Publisher:  publisher,
		NumWorkers: s.Workers,
		QueueSize:  s.BufferSize,
		Logger:     log,
	})
	if err != nil {
		publisher.Close()
		driver.Close()
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}

	return &Backend{
		Driver:    driver,
		Publisher: publisher,
		Pool:      pool,
		logger:    log,
	}, nil
}

func openDriver(ctx context.Context, s Settings, log *slog.Logger) (storage.Driver, error) {
	switch {
	case s.PostgresDSN != "":
		driver, err := postgres.NewDriver(ctx, s.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres storage: %w", err)
		}
		log.Info("using postgres storage")
		return driver, nil

	case s.SQLitePath != "":
		driver, err := sqlite.NewDriver(ctx, s.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite storage: %w", err)
		}
		log.Info("using sqlite storage", "path", s.SQLitePath)
		return driver, nil

	default:
		log.Debug("using in-memory storage")
		return inmemory.NewDriver(), nil
	}
}

func openPublisher(s Settings, log *slog.Logger) (eventstream.Publisher, error) {
	brokers := s.Brokers()
	if len(brokers) == 0 {
		return nop.NewPublisher(), nil
	}

	p, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   s.KafkaTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	log.Info("publishing events to kafka", "brokers", brokers, "topic", s.KafkaTopic)
	return p, nil
}

// Close drains the pool, then closes the publisher and the driver. It is safe
// to call more than once.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		b.Pool.Close()

		stats := b.Pool.Stats()
		b.logger.Debug("worker pool drained",
			"persisted", stats.Persisted,
			"published", stats.Published,
			"failed", stats.Failed,
		)

		b.closeErr = errors.Join(b.Publisher.Close(), b.Driver.Close())
	})
	return b.closeErr
}
