// Package image provides screenshot sources for the analysis pipeline.
package image

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/uxray-ai/uxray/internal/core"
)

// FileSource reads screenshots from the local filesystem. The reference
// is a path.
type FileSource struct{}

// NewFileSource creates a filesystem image source.
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Fetch reads the image bytes and infers the content type from the
// extension.
func (s *FileSource) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, "", core.ErrImageUnavailable(ref, err)
	}
	if len(data) == 0 {
		return nil, "", core.ErrImageUnavailable(ref, fmt.Errorf("file is empty"))
	}
	return data, contentTypeFor(ref), nil
}

func contentTypeFor(ref string) string {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
