// Package gormstorage archives recordings into any GORM database.
// The sqlite and postgres backends wrap it with their own connection handling.
package gormstorage

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/OCAP2/facecsv/internal/database"
	"github.com/OCAP2/facecsv/internal/model"
	"github.com/OCAP2/facecsv/internal/model/convert"
	"github.com/OCAP2/facecsv/pkg/core"
)

var ErrNoDB = errors.New("gorm backend has no database")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger zerolog.Logger
}

// Backend stores each recording as one recordings row plus its frames.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Name implements storage.Named.
func (b *Backend) Name() string {
	return "gorm"
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	return database.Setup(b.deps.DB, b.deps.Logger)
}

// Close is a no-op; connections are owned by the wrapping backend.
func (b *Backend) Close() error {
	return nil
}

// StoreRecording converts rec and inserts it with its frames.
func (b *Backend) StoreRecording(rec *core.Recording) error {
	m := convert.CoreToRecording(*rec)
	return b.Insert(&m)
}

// Insert writes a converted recording and its frames in one transaction.
// A recording is identified by subject and start time: exporting the same
// session again replaces the stored copy.
func (b *Backend) Insert(m *model.Recording) error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	var replaced int64
	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Unscoped().Model(&model.Recording{}).
			Where("subject = ? AND started_at = ?", m.Subject, m.StartedAt).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) > 0 {
			if err := tx.Where("recording_id IN ?", ids).Delete(&model.Frame{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Delete(&model.Recording{}, ids).Error; err != nil {
				return err
			}
			replaced = int64(len(ids))
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert recording for %q: %w", m.Subject, err)
	}
	b.deps.Logger.Debug().Uint("id", m.ID).Str("subject", m.Subject).Int("frames", len(m.Frames)).
		Int64("replaced", replaced).Msg("Archived recording")
	return nil
}

// Get loads a stored recording with its frames in row order.
func (b *Backend) Get(id uint) (*core.Recording, error) {
	if b.deps.DB == nil {
		return nil, ErrNoDB
	}
	var m model.Recording
	err := b.deps.DB.
		Preload("Frames", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		First(&m, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recording %d: %w", id, err)
	}
	rec, err := convert.RecordingToCore(m)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns stored recordings without frames, newest first. An empty
// subject matches all.
func (b *Backend) List(subject string, limit int) ([]model.Recording, error) {
	if b.deps.DB == nil {
		return nil, ErrNoDB
	}
	q := b.deps.DB.Order("exported_at desc, id desc")
	if subject != "" {
		q = q.Where("subject = ?", subject)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.Recording
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	return out, nil
}
