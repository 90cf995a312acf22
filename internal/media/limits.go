package media

import (
	"fmt"
	"io"

	"mediacheck/internal/core"
)

// MiB is one mebibyte.
const MiB int64 = 1024 * 1024

// Limits maps each accepted category to its maximum byte count.
type Limits map[core.FileType]int64

// DefaultLimits returns the stock size ceilings.
func DefaultLimits() Limits {
	return Limits{
		core.FileTypeImage: 50 * MiB,
		core.FileTypeVideo: 250 * MiB,
		core.FileTypeAudio: 20 * MiB,
	}
}

// Max returns the largest ceiling across categories.
func (l Limits) Max() int64 {
	var largest int64
	for _, v := range l {
		if v > largest {
			largest = v
		}
	}
	return largest
}

// Validate reports a configuration where an accepted category has no limit.
func (l Limits) Validate() error {
	for _, ft := range core.FileTypes {
		if l[ft] <= 0 {
			return fmt.Errorf("missing size limit for %s files", ft)
		}
	}
	return nil
}

// Check rejects sizes above the category's ceiling.
func (l Limits) Check(ft core.FileType, size int64) error {
	limit, ok := l[ft]
	if !ok {
		return core.NewValidationError(fmt.Sprintf("unsupported file type: %s", ft))
	}
	if size > limit {
		return core.NewValidationError(fmt.Sprintf("file size exceeds %sMB limit for %s files", formatMB(limit), ft))
	}
	return nil
}

func formatMB(bytes int64) string {
	if bytes%MiB == 0 {
		return fmt.Sprintf("%d", bytes/MiB)
	}
	return fmt.Sprintf("%.1f", float64(bytes)/float64(MiB))
}

// MeasureSize returns the byte length of r by seeking to its end, then
// rewinds it so the payload can be read from the start.
func MeasureSize(r io.Seeker) (int64, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to measure upload: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to rewind upload: %w", err)
	}
	return size, nil
}
