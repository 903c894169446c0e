// Package reliability publishes reports and store snapshots to object
// storage and runs database maintenance.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	snapshotPrefix       = "bojops-snapshot-"
	snapshotSuffix       = ".tar.gz"
	snapshotTimeLayout   = "2006-01-02-150405"
	snapshotMetadataName = "snapshot-metadata.json"
	// minSnapshotsToKeep survive rotation regardless of age.
	minSnapshotsToKeep = 3
)

// ObjectStore is the object storage a Publisher writes to. *S3Client
// implements it.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// SnapshotMetadata is written into every snapshot archive.
type SnapshotMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
}

// SnapshotInfo describes a snapshot held in object storage.
type SnapshotInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// Publisher uploads reports and store snapshots under a key prefix.
type Publisher struct {
	store  ObjectStore
	prefix string
	now    func() time.Time
	log    zerolog.Logger
}

// NewPublisher creates a publisher writing to store under prefix.
func NewPublisher(store ObjectStore, prefix string, log zerolog.Logger) *Publisher {
	return &Publisher{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
		log:    log.With().Str("service", "publisher").Logger(),
	}
}

func (p *Publisher) key(name string) string {
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// PublishFile uploads the file at filePath under key and returns its location.
func (p *Publisher) PublishFile(ctx context.Context, key, filePath, contentType string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	location, err := p.store.Upload(ctx, p.key(key), f, contentType)
	if err != nil {
		return "", err
	}
	p.log.Info().Str("key", p.key(key)).Str("location", location).Msg("Published file")
	return location, nil
}

// PublishSnapshot archives the store file with a metadata file and uploads
// the archive. It returns the object key.
func (p *Publisher) PublishSnapshot(ctx context.Context, storePath string) (string, error) {
	startTime := time.Now()

	info, err := os.Stat(storePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat store: %w", err)
	}
	checksum, err := calculateChecksum(storePath)
	if err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	now := p.now().UTC()
	metadata := SnapshotMetadata{
		Timestamp: now,
		Version:   "1",
		Filename:  filepath.Base(storePath),
		SizeBytes: info.Size(),
		Checksum:  checksum,
	}

	stagingDir, err := os.MkdirTemp("", "bojops-snapshot")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	archivePath := filepath.Join(stagingDir, "snapshot"+snapshotSuffix)
	if err := createArchive(archivePath, storePath, metadata); err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	key := p.key(snapshotPrefix + now.Format(snapshotTimeLayout) + snapshotSuffix)
	if _, err := p.store.Upload(ctx, key, archive, "application/gzip"); err != nil {
		return "", err
	}

	p.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("key", key).
		Int64("size_bytes", info.Size()).
		Msg("Store snapshot published")
	return key, nil
}

// ListSnapshots returns the stored snapshots, newest first.
func (p *Publisher) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	objects, err := p.store.List(ctx, p.key(snapshotPrefix))
	if err != nil {
		return nil, err
	}

	now := p.now()
	snapshots := make([]SnapshotInfo, 0, len(objects))
	for _, obj := range objects {
		name := path.Base(obj.Key)
		if !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotSuffix)
		ts, err := time.Parse(snapshotTimeLayout, stamp)
		if err != nil {
			p.log.Warn().Str("key", obj.Key).Msg("Failed to parse timestamp from snapshot key")
			continue
		}
		snapshots = append(snapshots, SnapshotInfo{
			Key:       obj.Key,
			Timestamp: ts,
			SizeBytes: obj.Size,
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.After(snapshots[j].Timestamp)
	})
	return snapshots, nil
}

// RotateSnapshots deletes snapshots older than retentionDays, always keeping
// the newest three. A retention of 0 keeps everything. It returns the
// number deleted.
func (p *Publisher) RotateSnapshots(ctx context.Context, retentionDays int) (int, error) {
	snapshots, err := p.ListSnapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list snapshots: %w", err)
	}
	if retentionDays <= 0 || len(snapshots) <= minSnapshotsToKeep {
		return 0, nil
	}

	cutoff := p.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, s := range snapshots[minSnapshotsToKeep:] {
		if !s.Timestamp.Before(cutoff) {
			continue
		}
		if err := p.store.Delete(ctx, s.Key); err != nil {
			p.log.Error().Err(err).Str("key", s.Key).Msg("Failed to delete old snapshot")
			continue
		}
		deleted++
	}

	p.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(snapshots)-deleted).
		Msg("Snapshot rotation completed")
	return deleted, nil
}

func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func createArchive(archivePath, storePath string, metadata SnapshotMetadata) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	tarWriter := tar.NewWriter(gzipWriter)

	meta, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	if err := tarWriter.WriteHeader(&tar.Header{
		Name:    snapshotMetadataName,
		Size:    int64(len(meta)),
		Mode:    0o644,
		ModTime: metadata.Timestamp,
	}); err != nil {
		return err
	}
	if _, err := tarWriter.Write(meta); err != nil {
		return err
	}

	if err := addFileToArchive(tarWriter, storePath, metadata.Filename); err != nil {
		return err
	}
	if err := tarWriter.Close(); err != nil {
		return err
	}
	return gzipWriter.Close()
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if err := tarWriter.WriteHeader(&tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}); err != nil {
		return err
	}
	_, err = io.Copy(tarWriter, file)
	return err
}
