package kyc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"blocknexus/pkg/requestcontext"
)

const (
	exportNamePrefix = "blockNexus_KYC_backup_"
	exportDateLayout = "2006-01-02"
)

// Artifact is a downloadable backup of the KYC collection.
type Artifact struct {
	Name    string
	Content []byte
}

// ArtifactSink receives export artifacts, e.g. to keep a copy on disk.
type ArtifactSink interface {
	Save(ctx context.Context, artifact Artifact) error
}

// Export serializes the KYC collection as 2-space indented JSON named
// blockNexus_KYC_backup_<YYYY-MM-DD>.json. An unreadable collection exports as
// "{}". Failures are logged and returned; nothing is written to the medium.
func (s *Store) Export(ctx context.Context) (Artifact, error) {
	ctx, span := s.startSpan(ctx, "kyc.Export", "")
	defer span.End()

	records := s.AllKYC(ctx)
	content, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return Artifact{}, s.exportFailed(ctx, fmt.Errorf("encode export: %w", err))
	}
	artifact := Artifact{
		Name:    exportNamePrefix + s.now(ctx).Format(exportDateLayout) + ".json",
		Content: content,
	}

	if s.sink != nil {
		if err := s.sink.Save(ctx, artifact); err != nil {
			return Artifact{}, s.exportFailed(ctx, err)
		}
	}

	if s.metrics != nil {
		s.metrics.IncrementExports("success")
	}
	s.logger.InfoContext(ctx, "kyc collection exported",
		"request_id", requestcontext.RequestID(ctx),
		"artifact", artifact.Name,
		"records", len(records),
	)
	return artifact, nil
}

func (s *Store) exportFailed(ctx context.Context, err error) error {
	if s.metrics != nil {
		s.metrics.IncrementExports("failure")
	}
	s.logger.ErrorContext(ctx, "kyc export failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	return err
}

// DirSink writes artifacts into a directory, overwriting same-day backups.
type DirSink struct {
	dir string
}

// NewDirSink creates dir if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

func (d *DirSink) Save(_ context.Context, artifact Artifact) error {
	path := filepath.Join(d.dir, filepath.Base(artifact.Name))
	if err := os.WriteFile(path, artifact.Content, 0o640); err != nil {
		return fmt.Errorf("write export %s: %w", artifact.Name, err)
	}
	return nil
}
