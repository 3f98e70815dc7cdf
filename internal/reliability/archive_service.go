package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/engine/internal/domain"
)

// archivePrefix namespaces snapshot archives in the bucket.
const archivePrefix = "snapshots/"

// ObjectStorage is the subset of bucket operations the archive service needs.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// ArchiveService uploads gzipped snapshot payloads and rotates old archives.
type ArchiveService struct {
	store   ObjectStorage
	keepMin int
	log     zerolog.Logger
}

// NewArchiveService creates the archive service. keepMin archives survive
// rotation regardless of age.
func NewArchiveService(store ObjectStorage, keepMin int, log zerolog.Logger) *ArchiveService {
	if keepMin < 1 {
		keepMin = 3
	}
	return &ArchiveService{
		store:   store,
		keepMin: keepMin,
		log:     log.With().Str("service", "snapshot_archive").Logger(),
	}
}

// Archive gzips the snapshot payload and uploads it under
// snapshots/<date>/<portfolio>-<timestamp>.json.gz.
func (s *ArchiveService) Archive(ctx context.Context, snapshot domain.PortfolioSnapshot) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(snapshot.Payload); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}

	key := fmt.Sprintf("%s%s/%s-%d.json.gz",
		archivePrefix,
		snapshot.TakenAt.UTC().Format("2006-01-02"),
		snapshot.PortfolioID,
		snapshot.TakenAt.Unix(),
	)
	if err := s.store.Upload(ctx, key, &buf); err != nil {
		return err
	}

	s.log.Info().Str("key", key).Int("bytes", buf.Len()).Msg("Archived snapshot")
	return nil
}

// RotateOldArchives deletes archives older than retentionDays, always
// keeping the newest keepMin regardless of age. retentionDays <= 0 keeps
// everything.
func (s *ArchiveService) RotateOldArchives(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}

	objects, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return err
	}
	if len(objects) <= s.keepMin {
		s.log.Debug().Int("count", len(objects)).Msg("Too few archives to rotate")
		return nil
	}

	// Newest first; everything past keepMin is a deletion candidate.
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, obj := range objects[s.keepMin:] {
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			s.log.Error().Err(err).Str("key", obj.Key).Msg("Failed to delete archive")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Msg("Rotated old archives")
	}
	return nil
}
