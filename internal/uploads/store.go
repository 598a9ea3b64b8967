// Package uploads stores the photos teams attach to grid cells.
package uploads

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const DefaultMaxSize int64 = 5 << 20

var ErrUploadRejected = errors.New("upload rejected")
var ErrUnsupportedType = fmt.Errorf("%w: only image files are accepted", ErrUploadRejected)
var ErrTooLarge = fmt.Errorf("%w: file too large", ErrUploadRejected)
var ErrMissingFile = fmt.Errorf("%w: missing image file", ErrUploadRejected)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type Stored struct {
	Path        string // relative to the store root
	URL         string
	ContentType string
	Size        int64
}

// Store writes images below dir on fs and publishes them under urlPrefix.
type Store struct {
	fs        afero.Fs
	dir       string
	urlPrefix string
	maxSize   int64
}

func NewStore(fs afero.Fs, dir, urlPrefix string, maxSize int64) *Store {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Store{
		fs:        fs,
		dir:       dir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
		maxSize:   maxSize,
	}
}

func (s *Store) MaxSize() int64 { return s.maxSize }

// FileSystem serves stored images read-only.
func (s *Store) FileSystem() http.FileSystem {
	return afero.NewHttpFs(afero.NewReadOnlyFs(afero.NewBasePathFs(s.fs, s.dir)))
}

// Save checks the extension and sniffed content type, then writes the file
// under a random name in the game's directory.
func (s *Store) Save(gameID, filename string, r io.Reader) (Stored, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return Stored{}, fmt.Errorf("%w (extension %q)", ErrUnsupportedType, ext)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Stored{}, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return Stored{}, ErrMissingFile
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return Stored{}, fmt.Errorf("%w (content %q)", ErrUnsupportedType, contentType)
	}

	gameDir := safeSegment(gameID)
	rel := path.Join(gameDir, uuid.NewString()+ext)
	full := filepath.Join(s.dir, filepath.FromSlash(rel))

	if err := s.fs.MkdirAll(filepath.Join(s.dir, gameDir), 0o755); err != nil {
		return Stored{}, fmt.Errorf("create upload dir: %w", err)
	}
	f, err := s.fs.Create(full)
	if err != nil {
		return Stored{}, fmt.Errorf("create upload file: %w", err)
	}

	size, err := io.Copy(f, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && size > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = s.fs.Remove(full)
		if errors.Is(err, ErrUploadRejected) {
			return Stored{}, err
		}
		return Stored{}, fmt.Errorf("write upload: %w", err)
	}

	return Stored{
		Path:        rel,
		URL:         s.urlPrefix + "/" + rel,
		ContentType: contentType,
		Size:        size,
	}, nil
}

func (s *Store) Remove(st Stored) error {
	return s.fs.Remove(filepath.Join(s.dir, filepath.FromSlash(st.Path)))
}

// safeSegment keeps only characters that are valid in generated game ids.
func safeSegment(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
