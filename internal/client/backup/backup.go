// Package backup exports an owner's records to a portable archive and
// restores them. Archives are JSON, optionally passphrase-encrypted, and can
// be pushed to S3-compatible object storage for off-device safekeeping.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/avolkov/leadbook/internal/client/models"
	"github.com/avolkov/leadbook/internal/logging"
)

// Snapshot is the archive content: every live record of one owner at one
// moment in time.
type Snapshot struct {
	OwnerId   string          `json:"owner_id"`
	CreatedAt time.Time       `json:"created_at"`
	Records   []models.Record `json:"records"`
}

// Exporter yields the records to archive. Implemented by the store.
type Exporter interface {
	ExportSnapshot(ctx context.Context, ownerId string) ([]models.Record, error)
}

// Importer receives restored records. Implemented by the store's Put path,
// so restored records flow through the outbox like fresh edits.
type Importer interface {
	Put(ctx context.Context, record *models.Record) error
}

// Uploader ships a finished archive off the device.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) error
}

type Service struct {
	exporter Exporter
	importer Importer
	uploader Uploader
	log      logging.Logger
	now      func() time.Time
}

// New builds the backup service. uploader may be nil when no object storage
// is configured; Push then returns an error.
func New(exporter Exporter, importer Importer, uploader Uploader, log logging.Logger) *Service {
	return &Service{
		exporter: exporter,
		importer: importer,
		uploader: uploader,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) snapshot(ctx context.Context, ownerId string) (*Snapshot, error) {
	records, err := s.exporter.ExportSnapshot(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		OwnerId:   ownerId,
		CreatedAt: s.now().UTC(),
		Records:   records,
	}, nil
}

// Export writes a plain JSON archive to path.
func (s *Service) Export(ctx context.Context, ownerId, path string) error {
	snap, err := s.snapshot(ctx, ownerId)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	s.log.Info(ctx, "archive written", "path", path, "records", len(snap.Records))
	return nil
}

// ExportEncrypted writes a passphrase-encrypted archive to path.
func (s *Service) ExportEncrypted(ctx context.Context, ownerId, path string, passphrase []byte) error {
	snap, err := s.snapshot(ctx, ownerId)
	if err != nil {
		return err
	}
	data, err := seal(snap, passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	s.log.Info(ctx, "encrypted archive written", "path", path, "records", len(snap.Records))
	return nil
}

// Import restores records from a plain archive through the regular write
// path, so they are queued for sync like any local edit. Returns the number
// of records restored.
func (s *Service) Import(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("not a leadbook archive: %w", err)
	}
	return s.restore(ctx, &snap)
}

// ImportEncrypted restores records from an encrypted archive.
func (s *Service) ImportEncrypted(ctx context.Context, path string, passphrase []byte) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	snap, err := open(data, passphrase)
	if err != nil {
		return 0, err
	}
	return s.restore(ctx, snap)
}

func (s *Service) restore(ctx context.Context, snap *Snapshot) (int, error) {
	restored := 0
	for i := range snap.Records {
		rec := models.Record{
			Id:          snap.Records[i].Id,
			OwnerId:     snap.Records[i].OwnerId,
			DisplayName: snap.Records[i].DisplayName,
			Payload:     snap.Records[i].Payload,
		}
		if err := s.importer.Put(ctx, &rec); err != nil {
			return restored, err
		}
		restored++
	}
	s.log.Info(ctx, "archive restored", "records", restored)
	return restored, nil
}

// Push uploads an archive file to object storage under a timestamped key.
func (s *Service) Push(ctx context.Context, ownerId, path string) (string, error) {
	if s.uploader == nil {
		return "", fmt.Errorf("no object storage configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("backups/%s/%s.json", ownerId, s.now().UTC().Format("20060102-150405"))
	if err := s.uploader.Upload(ctx, key, data); err != nil {
		return "", err
	}
	s.log.Info(ctx, "archive uploaded", "key", key, "bytes", len(data))
	return key, nil
}
