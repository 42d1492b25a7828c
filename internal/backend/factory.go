package backend

import (
	"context"
	"fmt"

	"ledger/internal/log"
	"ledger/internal/storage"
	"ledger/internal/store"
	"ledger/internal/store/file"
	"ledger/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := store.Options{IDs: config.IDs, Logger: f.logger}

	switch config.Type {
	case MemoryBackend:
		s := memory.NewStore(opts)
		f.logger.InfoContext(ctx, "Initialized memory backend", log.FieldBackend, config.Type)
		return &BackendResult{Store: s, Cleanup: s.Close}, nil

	case FileBackend:
		s, err := file.NewStore(config.DataDirectory, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file backend: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized file backend",
			log.FieldBackend, config.Type,
			"data_directory", config.DataDirectory)
		return &BackendResult{Store: s, Cleanup: s.Close}, nil

	case SQLiteBackend:
		s, err := storage.NewStore(config.SQLiteDBPath, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite backend: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend",
			log.FieldBackend, config.Type,
			"db_path", config.SQLiteDBPath)
		return &BackendResult{Store: s, Cleanup: s.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
