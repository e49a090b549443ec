// Package wire provides dependency injection for the lifebank CLI.
// It creates singleton services with lazy initialization.
package wire

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	cliadapter "github.com/example/lifebank/internal/adapters/cli"
	"github.com/example/lifebank/internal/adapters/events"
	"github.com/example/lifebank/internal/adapters/export"
	"github.com/example/lifebank/internal/adapters/identity"
	"github.com/example/lifebank/internal/adapters/kvstore"
	"github.com/example/lifebank/internal/adapters/leveldbstore"
	"github.com/example/lifebank/internal/adapters/sqlstore"
	"github.com/example/lifebank/internal/app"
	"github.com/example/lifebank/internal/config"
	"github.com/example/lifebank/internal/db"
	"github.com/example/lifebank/internal/logging"
	"github.com/example/lifebank/internal/ports/primary"
	"github.com/example/lifebank/internal/ports/secondary"
)

// Services is one fully wired application.
type Services struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Request primary.RequestService
	Export  primary.ExportService
	close   []func() error
}

// Close releases the store.
func (s *Services) Close() error {
	var first error
	for _, fn := range s.close {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var (
	services *Services
	once     sync.Once
)

// RequestService returns the singleton RequestService instance.
func RequestService() primary.RequestService {
	once.Do(initServices)
	return services.Request
}

// ExportService returns the singleton ExportService instance.
func ExportService() primary.ExportService {
	once.Do(initServices)
	return services.Export
}

// Config returns the configuration the singletons were built from.
func Config() *config.Config {
	once.Do(initServices)
	return services.Config
}

// Close releases the singleton store if it was opened.
func Close() error {
	if services == nil {
		return nil
	}
	return services.Close()
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to get working directory: %v", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	services, err = Build(context.Background(), cfg, os.Stderr)
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}
}

// Build wires every adapter named by cfg. Logs go to logOut.
func Build(ctx context.Context, cfg *config.Config, logOut io.Writer) (*Services, error) {
	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	s := &Services{Config: cfg, Logger: logger}

	// Create the store adapter (secondary port) selected by config
	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		s.close = append(s.close, closeStore)
	}

	sink, err := openSink(ctx, cfg.Export)
	if err != nil {
		s.Close()
		return nil, err
	}

	caller := identity.NewContextIdentity(cfg.Actor)
	clock := identity.SystemClock{}

	// Create services (primary ports implementation)
	s.Request = app.NewRequestService(store, clock, caller, events.NewLogPublisher(logger), logger)
	s.Export = app.NewExportService(store, clock, caller, sink, logger)

	logger.Debug().Str("driver", cfg.Store.Driver).Str("sink", cfg.Export.Sink).Msg("services wired")
	return s, nil
}

func openStore(cfg config.StoreConfig) (secondary.RequestStore, func() error, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		database, err := db.Open(db.DriverSQLite, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return sqlstore.NewStore(database, db.DriverSQLite), database.Close, nil
	case config.DriverPostgres:
		database, err := db.Open(db.DriverPostgres, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return sqlstore.NewStore(database, db.DriverPostgres), database.Close, nil
	case config.DriverLevelDB:
		path := cfg.Path
		if path == "" {
			dataDir, err := config.DefaultDataDir()
			if err != nil {
				return nil, nil, err
			}
			path = filepath.Join(dataDir, "leveldb")
		}
		store, backend, err := leveldbstore.OpenStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, backend.Close, nil
	case config.DriverMemory:
		return kvstore.NewMemoryStore(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func openSink(ctx context.Context, cfg config.ExportConfig) (secondary.SnapshotSink, error) {
	switch cfg.Sink {
	case config.SinkFile:
		return export.NewFileSink(cfg.Dir), nil
	case config.SinkS3:
		return export.NewS3Sink(ctx, export.S3Config{
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	}
	return nil, fmt.Errorf("unknown export sink %q", cfg.Sink)
}

// RequestAdapter returns a new RequestAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func RequestAdapter() *cliadapter.RequestAdapter {
	return RequestAdapterWithOutput(os.Stdout)
}

// RequestAdapterWithOutput returns a new RequestAdapter writing to the given output.
// This variant allows testing or alternate output destinations.
func RequestAdapterWithOutput(out io.Writer) *cliadapter.RequestAdapter {
	return cliadapter.NewRequestAdapter(RequestService(), out)
}

// ExportAdapter returns a new ExportAdapter writing to stdout.
func ExportAdapter() *cliadapter.ExportAdapter {
	return cliadapter.NewExportAdapter(ExportService(), os.Stdout)
}
