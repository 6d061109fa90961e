// Copyright 2020-2022 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mkvtool/pkg/log"

	"github.com/shirou/gopsutil/v3/disk"
)

// ErrInsufficientSpace is returned when the output disk is too full.
var ErrInsufficientSpace = errors.New("insufficient disk space")

type usageFunc func(context.Context, string) (*disk.UsageStat, error)

// Disk checks the free space of output directories.
type Disk struct {
	usage usageFunc
	log   *log.Logger
}

// NewDisk returns a Disk backed by gopsutil.
func NewDisk(logger *log.Logger) *Disk {
	return &Disk{
		usage: disk.UsageWithContext,
		log:   logger,
	}
}

// FreeSpace returns the free bytes on the disk holding path.
// A path that doesn't exist yet is looked up by its parent.
func (d *Disk) FreeSpace(ctx context.Context, path string) (int64, error) {
	dir := existingDir(path)
	stat, err := d.usage(ctx, dir)
	if err != nil {
		return 0, fmt.Errorf("disk usage of %v: %w", dir, err)
	}
	return int64(stat.Free), nil
}

func existingDir(path string) string {
	for {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

// Check returns ErrInsufficientSpace if writing need bytes to
// path would leave less than reserve bytes free.
func (d *Disk) Check(ctx context.Context, path string, need, reserve int64) error {
	free, err := d.FreeSpace(ctx, path)
	if err != nil {
		return err
	}
	d.log.Debug().Src("system").
		Msgf("%v free, %v needed for %v", FormatSize(free), FormatSize(need), path)

	if free-need < reserve {
		return fmt.Errorf("%w: %v free, need %v plus %v reserve",
			ErrInsufficientSpace, FormatSize(free), FormatSize(need), FormatSize(reserve))
	}
	return nil
}

const (
	kilobyte float64 = 1000
	megabyte         = kilobyte * 1000
	gigabyte         = megabyte * 1000
	terabyte         = gigabyte * 1000
)

// FormatSize formats a byte count for log messages.
func FormatSize(bytes int64) string {
	size := float64(bytes)
	switch {
	case size < megabyte:
		return fmt.Sprintf("%.0fKB", size/kilobyte)
	case size < 1000*megabyte:
		return fmt.Sprintf("%.0fMB", size/megabyte)
	case size < 10*gigabyte:
		return fmt.Sprintf("%.2fGB", size/gigabyte)
	case size < 100*gigabyte:
		return fmt.Sprintf("%.1fGB", size/gigabyte)
	case size < 1000*gigabyte:
		return fmt.Sprintf("%.0fGB", size/gigabyte)
	case size < 10*terabyte:
		return fmt.Sprintf("%.2fTB", size/terabyte)
	case size < 100*terabyte:
		return fmt.Sprintf("%.1fTB", size/terabyte)
	default:
		return fmt.Sprintf("%.0fTB", size/terabyte)
	}
}
