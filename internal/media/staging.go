package media

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// StagedFilePrefix prefixes every temporary artifact created by Stage.
const StagedFilePrefix = "mediacheck-"

// StagedFile is the transient on-disk copy of an upload. It is owned by a
// single request and must be released before the request returns.
type StagedFile struct {
	Path   string
	Size   int64
	Digest string

	releaseOnce sync.Once
	releaseErr  error
}

// Stage writes r to a uniquely named temporary file in dir (os.TempDir when
// empty) whose suffix is ext. On failure no file is left behind.
func Stage(dir, ext string, r io.Reader) (*StagedFile, error) {
	f, err := os.CreateTemp(dir, StagedFilePrefix+"*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}

	hash := xxhash.New()
	n, copyErr := io.Copy(io.MultiWriter(f, hash), r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(f.Name())
		if copyErr != nil {
			return nil, fmt.Errorf("failed to write staged file: %w", copyErr)
		}
		return nil, fmt.Errorf("failed to close staged file: %w", closeErr)
	}

	return &StagedFile{
		Path:   f.Name(),
		Size:   n,
		Digest: strconv.FormatUint(hash.Sum64(), 16),
	}, nil
}

// Release removes the staged file. Safe to call multiple times; a file that
// is already gone is not an error.
func (s *StagedFile) Release() error {
	s.releaseOnce.Do(func() {
		if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
			s.releaseErr = fmt.Errorf("failed to remove staged file: %w", err)
		}
	})
	return s.releaseErr
}
