package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Veraticus/dompet/internal/model"
)

// CheckpointManager keeps named copies of the ledger image on disk.
type CheckpointManager struct {
	ledger         *Ledger
	now            func() time.Time
	checkpointsDir string
}

// CheckpointMetadata is written next to each checkpoint image.
type CheckpointMetadata struct {
	CreatedAt     time.Time                     `json:"created_at"`
	TypeCounts    map[model.TransactionType]int `json:"type_counts"`
	ID            string                        `json:"id"`
	Description   string                        `json:"description"`
	FileSize      int64                         `json:"file_size"`
	Transactions  int                           `json:"transactions"`
	SchemaVersion int                           `json:"schema_version"`
	IsAuto        bool                          `json:"is_auto"`
}

// Common errors.
var (
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrCheckpointCorrupted = errors.New("checkpoint integrity check failed")
	ErrCheckpointExists    = errors.New("checkpoint already exists")
	ErrInvalidCheckpointID = errors.New("invalid checkpoint id: cannot contain path separators")
)

// maxAutoCheckpoints bounds how many automatic checkpoints are kept.
const maxAutoCheckpoints = 5

// NewCheckpointManager stores checkpoints under dir, creating it if needed.
func NewCheckpointManager(ledger *Ledger, dir string) (*CheckpointManager, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	return &CheckpointManager{
		ledger:         ledger,
		checkpointsDir: dir,
		now:            time.Now,
	}, nil
}

// Dir returns the checkpoint directory.
func (cm *CheckpointManager) Dir() string {
	return cm.checkpointsDir
}

func validateCheckpointID(id string) error {
	if id == "" || strings.Contains(id, "/") || strings.Contains(id, "\\") || strings.Contains(id, "..") {
		return ErrInvalidCheckpointID
	}
	return nil
}

func (cm *CheckpointManager) imagePath(id string) string {
	return filepath.Join(cm.checkpointsDir, id+".img")
}

func (cm *CheckpointManager) metadataPath(id string) string {
	return filepath.Join(cm.checkpointsDir, id+".meta.json")
}

// Create snapshots the current ledger image under tag.
func (cm *CheckpointManager) Create(ctx context.Context, tag, description string) (*CheckpointMetadata, error) {
	return cm.create(ctx, tag, description, false)
}

func (cm *CheckpointManager) create(ctx context.Context, tag, description string, auto bool) (*CheckpointMetadata, error) {
	if tag == "" {
		tag = fmt.Sprintf("checkpoint-%s", cm.now().Format("2006-01-02-150405"))
	}
	if err := validateCheckpointID(tag); err != nil {
		return nil, err
	}

	imagePath := cm.imagePath(tag)
	if _, err := os.Stat(imagePath); err == nil {
		return nil, ErrCheckpointExists
	}

	image, err := cm.ledger.Image(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger image: %w", err)
	}

	counts, total, err := cm.collectTypeCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect counts: %w", err)
	}

	if err := writeFileAtomic(imagePath, image); err != nil {
		return nil, fmt.Errorf("failed to write checkpoint: %w", err)
	}

	metadata := CheckpointMetadata{
		ID:            tag,
		CreatedAt:     cm.now(),
		Description:   description,
		FileSize:      int64(len(image)),
		Transactions:  total,
		TypeCounts:    counts,
		SchemaVersion: ExpectedSchemaVersion,
		IsAuto:        auto,
	}

	if err := cm.saveMetadata(metadata); err != nil {
		if rmErr := os.Remove(imagePath); rmErr != nil {
			slog.Error("failed to remove checkpoint file after metadata save failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	return &metadata, nil
}

// List returns all checkpoints, newest first. Unreadable metadata is skipped.
func (cm *CheckpointManager) List(_ context.Context) ([]CheckpointMetadata, error) {
	entries, err := os.ReadDir(cm.checkpointsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	checkpoints := make([]CheckpointMetadata, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".meta.json")
		metadata, err := cm.loadMetadata(id)
		if err != nil {
			slog.Debug("skipping unreadable checkpoint metadata", "id", id, "error", err)
			continue
		}
		checkpoints = append(checkpoints, *metadata)
	}

	slices.SortFunc(checkpoints, func(a, b CheckpointMetadata) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return checkpoints, nil
}

// Get returns metadata for one checkpoint.
func (cm *CheckpointManager) Get(_ context.Context, id string) (*CheckpointMetadata, error) {
	if err := validateCheckpointID(id); err != nil {
		return nil, err
	}
	metadata, err := cm.loadMetadata(id)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint metadata: %w", err)
	}
	return metadata, nil
}

// Restore replaces the ledger with the checkpoint's image.
func (cm *CheckpointManager) Restore(ctx context.Context, id string) error {
	if err := validateCheckpointID(id); err != nil {
		return err
	}

	image, err := os.ReadFile(cm.imagePath(id))
	if errors.Is(err, os.ErrNotExist) {
		return ErrCheckpointNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read checkpoint: %w", err)
	}

	if err := ValidateImage(ctx, image); err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpointCorrupted, err)
	}
	return cm.ledger.Restore(ctx, image)
}

// Delete removes a checkpoint.
func (cm *CheckpointManager) Delete(_ context.Context, id string) error {
	if err := validateCheckpointID(id); err != nil {
		return err
	}

	if err := os.Remove(cm.imagePath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to remove checkpoint file: %w", err)
	}
	if err := os.Remove(cm.metadataPath(id)); err != nil {
		slog.Debug("failed to remove metadata file", "error", err, "id", id)
	}
	return nil
}

// AutoCheckpoint snapshots the ledger before a bulk operation and prunes old
// automatic checkpoints.
func (cm *CheckpointManager) AutoCheckpoint(ctx context.Context, prefix string) (*CheckpointMetadata, error) {
	tag := fmt.Sprintf("auto-%s-%s", prefix, cm.now().Format("2006-01-02-150405"))
	metadata, err := cm.create(ctx, tag, fmt.Sprintf("Automatic checkpoint before %s", prefix), true)
	if err != nil {
		return nil, fmt.Errorf("failed to create auto-checkpoint: %w", err)
	}

	if err := cm.cleanupOldAutoCheckpoints(ctx); err != nil {
		slog.Warn("failed to clean up old auto-checkpoints", "error", err)
	}
	return metadata, nil
}

func (cm *CheckpointManager) cleanupOldAutoCheckpoints(ctx context.Context) error {
	checkpoints, err := cm.List(ctx)
	if err != nil {
		return err
	}

	autoCount := 0
	for _, cp := range checkpoints {
		if !cp.IsAuto {
			continue
		}
		autoCount++
		if autoCount > maxAutoCheckpoints {
			if err := cm.Delete(ctx, cp.ID); err != nil {
				slog.Debug("failed to delete old auto-checkpoint during cleanup", "error", err, "checkpoint", cp.ID)
			}
		}
	}
	return nil
}

func (cm *CheckpointManager) collectTypeCounts(ctx context.Context) (map[model.TransactionType]int, int, error) {
	counts := make(map[model.TransactionType]int, len(model.Types()))
	total := 0
	for _, typ := range model.Types() {
		txns, err := cm.ledger.Query(ctx, Filter{Type: typ})
		if err != nil {
			return nil, 0, err
		}
		counts[typ] = len(txns)
		total += len(txns)
	}
	return counts, total, nil
}

func (cm *CheckpointManager) saveMetadata(metadata CheckpointMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return writeFileAtomic(cm.metadataPath(metadata.ID), data)
}

func (cm *CheckpointManager) loadMetadata(id string) (*CheckpointMetadata, error) {
	data, err := os.ReadFile(cm.metadataPath(id))
	if err != nil {
		return nil, err
	}
	var metadata CheckpointMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &metadata, nil
}

// writeFileAtomic writes through a temp file and rename so readers never see a
// partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
