package image

import (
	"github.com/uxray-ai/uxray/internal/config"
	"github.com/uxray-ai/uxray/internal/core"
)

// NewSource creates the configured image source.
func NewSource(cfg config.ImagesConfig) (core.ImageSource, error) {
	switch cfg.Source {
	case "", "file":
		return NewFileSource(), nil
	case "minio":
		return NewMinioSource(cfg.Minio)
	default:
		return nil, core.ErrConfig(core.CodeInvalidConfig, "unknown image source "+cfg.Source)
	}
}
