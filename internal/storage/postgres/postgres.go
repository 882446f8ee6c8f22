// Package postgres archives recordings into PostgreSQL through a queue and a
// background writer, so exports never wait on the network.
package postgres

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/OCAP2/facecsv/internal/config"
	"github.com/OCAP2/facecsv/internal/database"
	"github.com/OCAP2/facecsv/internal/model"
	"github.com/OCAP2/facecsv/internal/model/convert"
	"github.com/OCAP2/facecsv/internal/queue"
	gormstorage "github.com/OCAP2/facecsv/internal/storage/gorm"
	"github.com/OCAP2/facecsv/pkg/core"
)

// DefaultFlushInterval is how often queued recordings are written.
const DefaultFlushInterval = time.Second

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	DB            *gorm.DB // injected connection; when nil Init connects using Config
	Config        config.DBConfig
	Logger        zerolog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend with queue-based writes.
type Backend struct {
	deps    Dependencies
	gorm    *gormstorage.Backend
	pending *queue.Queue[model.Recording]
	ownsDB  bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:    deps,
		pending: queue.New[model.Recording](),
	}
}

// Name implements storage.Named.
func (b *Backend) Name() string {
	return "postgres"
}

// Init connects if needed, migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(b.deps.Config, b.deps.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.deps.DB = db
		b.ownsDB = true
	}

	b.gorm = gormstorage.New(gormstorage.Dependencies{DB: b.deps.DB, Logger: b.deps.Logger})
	if err := b.gorm.Init(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writeLoop()
	return nil
}

// StoreRecording queues rec for the next flush.
func (b *Backend) StoreRecording(rec *core.Recording) error {
	b.pending.Push(convert.CoreToRecording(*rec))
	return nil
}

// Pending returns the number of recordings waiting to be written.
func (b *Backend) Pending() int {
	return b.pending.Len()
}

// Close stops the writer after a final flush.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}
	if left := b.pending.Len(); left > 0 {
		b.deps.Logger.Warn().Int("recordings", left).Msg("Recordings left unwritten on close")
	}
	if b.ownsDB {
		sqlDB, err := b.deps.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func (b *Backend) writeLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.flush()
			return
		case <-ticker.C:
			b.flush()
		}
	}
}

// flush writes everything queued. Recordings from a failed write are put
// back and retried on the next tick.
func (b *Backend) flush() {
	items := b.pending.Drain()
	for i := range items {
		if err := b.gorm.Insert(&items[i]); err != nil {
			b.deps.Logger.Error().Err(err).Int("requeued", len(items)-i).Msg("Failed to write recordings")
			b.pending.Requeue(items[i:])
			return
		}
	}
}
