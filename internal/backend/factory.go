package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewFactory creates a new backend factory. m may be nil.
func NewFactory(logger *slog.Logger, m *metrics.Metrics) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger:  logger,
		metrics: m,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		kv  store.KV
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		kv, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		kv, err = memory.NewFromFiles(config.DataDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
		}
		f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	seeded, err := store.LoadSeedCategories(config.DataDirectory)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to load category seed: %w", err)
	}
	repo := store.NewRepository(&instrumentedKV{KV: kv, metrics: f.metrics}, store.WithDefaultCategories(seeded))

	result := &BackendResult{Repository: repo}
	var client *amqp.Client
	if config.AMQPURL != "" {
		client, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, "")
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			client = nil
		} else {
			f.logger.Info("Initialized AMQP publisher", "exchange", config.AMQPExchange)
			result.Publisher = client
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if client != nil {
			errs = append(errs, client.Close())
		}
		errs = append(errs, repo.Close())
		return errors.Join(errs...)
	}
	return result, nil
}

// instrumentedKV times every backend call.
type instrumentedKV struct {
	store.KV
	metrics *metrics.Metrics
}

func (k *instrumentedKV) Get(ctx context.Context, key string) ([]byte, error) {
	defer k.observe("get", time.Now())
	return k.KV.Get(ctx, key)
}

func (k *instrumentedKV) Set(ctx context.Context, key string, value []byte) error {
	defer k.observe("set", time.Now())
	return k.KV.Set(ctx, key, value)
}

func (k *instrumentedKV) Update(ctx context.Context, keys []string, fn store.UpdateFunc) error {
	defer k.observe("update", time.Now())
	return k.KV.Update(ctx, keys, fn)
}

func (k *instrumentedKV) observe(op string, start time.Time) {
	k.metrics.ObserveStore(op, time.Since(start))
}
