// Package filestore keeps uploaded and ingested documents under private
// per-user paths.
package filestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
)

var ErrNotFound = fmt.Errorf("file %w", apperror.ErrNotFound)

// Stored describes a file written by Save.
type Stored struct {
	Path   string
	Size   int64
	SHA256 string
}

type Store struct {
	fs afero.Fs
}

func New(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// NewOS roots the store at dir on the local disk. Paths can not escape dir.
func NewOS(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating files root: %w", err)
	}

	return New(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// UserPath returns the path of a new attachment owned by userID:
// users/<user-id>/attachments/<yyyy>/<mm>/<uuid><ext>.
func UserPath(userID uuid.UUID, at time.Time, filename, contentType string) string {
	return path.Join(
		"users", userID.String(), "attachments",
		at.Format("2006"), at.Format("01"),
		uuid.NewString()+extension(filename, contentType),
	)
}

var knownExtensions = map[string]string{
	"application/pdf": ".pdf",
	"application/xml": ".xml",
	"text/xml":        ".xml",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/tiff":      ".tiff",
	"application/zip": ".zip",
}

func extension(filename, contentType string) string {
	if ext := strings.ToLower(path.Ext(filename)); ext != "" && len(ext) <= 6 {
		return ext
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if ext, ok := knownExtensions[mediaType]; ok {
		return ext
	}

	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}

	return ".bin"
}

// Save writes data to a fresh path for userID and returns its metadata.
func (s *Store) Save(userID uuid.UUID, at time.Time, filename, contentType string, data []byte) (*Stored, error) {
	p := UserPath(userID, at, filename, contentType)

	if err := s.fs.MkdirAll(path.Dir(p), 0o750); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	if err := afero.WriteReader(s.fs, p, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}

	sum := sha256.Sum256(data)

	return &Stored{
		Path:   p,
		Size:   int64(len(data)),
		SHA256: hex.EncodeToString(sum[:]),
	}, nil
}

// Open returns a reader for a stored path.
func (s *Store) Open(p string) (afero.File, error) {
	f, err := s.fs.Open(path.Clean(p))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("opening file: %w", err)
	}

	return f, nil
}

// CopyTo streams a stored file into w.
func (s *Store) CopyTo(w io.Writer, p string) error {
	f, err := s.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copying file: %w", err)
	}

	return nil
}

// Remove deletes a stored path. Missing files are not an error.
func (s *Store) Remove(p string) error {
	if err := s.fs.Remove(path.Clean(p)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing file: %w", err)
	}

	return nil
}
