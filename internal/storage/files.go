package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// FileStore persists uploaded archive materials on local disk. Every file
// gets its own directory so duplicate names never collide:
// archives/<uuid-hex>/<sanitized-name>.
type FileStore struct {
	baseDir string
}

// NewFileStore creates the store rooted at baseDir, creating the
// directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("upload directory is not configured")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// BuildStoragePath generates a safe, unique storage path for a filename.
func BuildStoragePath(filename string) string {
	base := filepath.Base(filename)
	if base == "" || base == "." || base == "/" {
		base = "uploaded_file"
	}
	safe := unsafeNameChars.ReplaceAllString(base, "_")
	return fmt.Sprintf("archives/%s/%s", strings.ReplaceAll(uuid.New().String(), "-", ""), safe)
}

// Save writes one uploaded file under a fresh storage path and returns
// that path.
func (s *FileStore) Save(file *multipart.FileHeader) (string, error) {
	storagePath := BuildStoragePath(file.Filename)

	dst := filepath.Join(s.baseDir, filepath.FromSlash(storagePath))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create storage directory: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", file.Filename, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", dst, err)
	}

	return storagePath, nil
}

// Open opens a previously stored file.
func (s *FileStore) Open(storagePath string) (*os.File, error) {
	clean, err := s.resolve(storagePath)
	if err != nil {
		return nil, err
	}
	return os.Open(clean)
}

// Remove deletes a stored file and its containing directory.
func (s *FileStore) Remove(storagePath string) error {
	clean, err := s.resolve(storagePath)
	if err != nil {
		return err
	}
	if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", storagePath, err)
	}
	// Drop the per-file directory; ignore failure if it is not empty
	os.Remove(filepath.Dir(clean))
	return nil
}

// resolve maps a storage path to a filesystem path, rejecting anything
// that would escape the base directory.
func (s *FileStore) resolve(storagePath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(storagePath))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage path %q", storagePath)
	}
	return filepath.Join(s.baseDir, clean), nil
}

// FileURI returns the URI clients use to fetch a stored file.
func FileURI(storagePath string) string {
	return "/files/" + storagePath
}
