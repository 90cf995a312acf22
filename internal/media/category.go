// Package media holds the upload validation rules and the staged-file
// lifecycle: extension categories, size ceilings and temporary storage.
package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"mediacheck/internal/core"
)

// Extensions maps each category to its accepted extensions (lower-case, no dot).
var Extensions = map[core.FileType][]string{
	core.FileTypeImage: {"jpg", "jpeg", "png", "gif", "webp"},
	core.FileTypeVideo: {"mp4", "mov"},
	core.FileTypeAudio: {"flac", "wav", "mp3", "m4a", "aac", "alac", "ogg"},
}

// Extension returns the filename's extension including the dot, with the
// original case preserved.
func Extension(filename string) string {
	return filepath.Ext(filename)
}

// ResolveType derives the category from the filename extension.
// Matching is case-insensitive. The declared name is trusted as is: the
// payload bytes are never sniffed.
func ResolveType(filename string) (core.FileType, error) {
	ext := strings.ToLower(Extension(filename))
	bare := strings.TrimPrefix(ext, ".")

	if bare != "" {
		for _, ft := range core.FileTypes {
			for _, candidate := range Extensions[ft] {
				if bare == candidate {
					return ft, nil
				}
			}
		}
	}

	return "", core.NewValidationError(fmt.Sprintf("unsupported file type: %s", ext))
}
