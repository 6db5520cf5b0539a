package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ImageStore keeps the captured receipt photos. The stored copy exists
// only so the user can review the original photo; it is never re-analyzed.
type ImageStore interface {
	// Save persists an image and returns the path/filename
	Save(filename string, data []byte) (string, error)

	// Get retrieves an image by path
	Get(path string) ([]byte, error)

	// Delete removes an image
	Delete(path string) error
}

// DirImageStore implements ImageStore on a local directory
type DirImageStore struct {
	basePath string
}

// NewDirImageStore creates the image directory if needed
func NewDirImageStore(basePath string) (*DirImageStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}

	return &DirImageStore{
		basePath: basePath,
	}, nil
}

// Save persists an image to the directory
func (d *DirImageStore) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(d.basePath, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return filename, nil
}

// Get retrieves an image from the directory
func (d *DirImageStore) Get(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(d.basePath, path))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return data, nil
}

// Delete removes an image from the directory
func (d *DirImageStore) Delete(path string) error {
	if err := os.Remove(filepath.Join(d.basePath, path)); err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	return nil
}

// ImageContentType maps a stored image path to the content type to serve
// it with
func ImageContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
