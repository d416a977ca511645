package imagestore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/roboweedmaps/rwm-dataset/internal/errors"
)

// MinCopyFreeBytes is the free space below which a copy-mode extraction warns.
const MinCopyFreeBytes uint64 = 1 << 30

// ErrInsufficientSpace is returned by CheckFreeSpace when the volume is too full.
var ErrInsufficientSpace = errors.NewStd("insufficient free disk space")

// SpaceInfo describes the volume holding a path.
type SpaceInfo struct {
	Path        string
	Total       uint64
	Free        uint64
	UsedPercent float64
}

// FreeSpace reports usage of the volume that holds path. The output directory
// may not exist yet, so the nearest existing ancestor is measured.
func FreeSpace(path string) (SpaceInfo, error) {
	probe, err := existingAncestor(path)
	if err != nil {
		return SpaceInfo{}, err
	}
	usage, err := disk.Usage(probe)
	if err != nil {
		return SpaceInfo{}, errors.New(fmt.Errorf("disk usage of %s: %w", probe, err)).
			Component("imagestore").
			Category(errors.CategoryDiskUsage).
			Build()
	}
	return SpaceInfo{
		Path:        probe,
		Total:       usage.Total,
		Free:        usage.Free,
		UsedPercent: usage.UsedPercent,
	}, nil
}

// CheckFreeSpace returns ErrInsufficientSpace when fewer than minBytes are free on
// the volume holding path. The SpaceInfo is returned in both cases.
func CheckFreeSpace(path string, minBytes uint64) (SpaceInfo, error) {
	info, err := FreeSpace(path)
	if err != nil {
		return info, err
	}
	if info.Free < minBytes {
		return info, errors.New(fmt.Errorf("%w: %d bytes free, want %d", ErrInsufficientSpace, info.Free, minBytes)).
			Component("imagestore").
			Category(errors.CategoryDiskUsage).
			Context("free_bytes", info.Free).
			Context("min_bytes", minBytes).
			Build()
	}
	return info, nil
}

func existingAncestor(path string) (string, error) {
	p, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p, nil
		}
		p = parent
	}
}
