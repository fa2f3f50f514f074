package archive

import (
	"fmt"

	"arrivals-go/internal/config"
)

// NewArchiveFromConfig creates an Archive implementation based on the
// archive config type. Returns (nil, nil) for type "none" or empty: archival
// is optional and the app treats a nil archive as disabled.
func NewArchiveFromConfig(cfg config.ArchiveConfig) (Archive, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryArchive(cfg.Name), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem archive requires fs_root to be set")
		}
		return NewFileSystemArchive(cfg.Name, cfg.FSRoot)
	case "s3":
		return NewS3Archive(cfg.Name, cfg)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
