// Package attach keeps local copies of uploaded reminder attachments.
//
// Files live under a base directory, one subdirectory per attachment id:
//
//	<base>/<hex(file id)>/<file name>
//
// so a local copy keeps its original name while ids that contain path
// separators (server upload paths) stay safe on disk.
package attach

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

// ErrNotFound is returned when no local copy exists for a file id.
var ErrNotFound = errors.New("attachment not found")

// Store is a diskv-backed attachment directory.
type Store struct {
	d      *diskv.Diskv
	base   string
	logger *log.Logger
}

// Open creates the store rooted at dir.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("attachment dir cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create attachment dir: %w", err)
	}

	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:          abs,
			AdvancedTransform: keyToPath,
			InverseTransform:  pathToKey,
			PathPerm:          0o700,
			FilePerm:          0o600,
		}),
		base:   abs,
		logger: log.New(os.Stderr, "[attach] ", log.LstdFlags),
	}, nil
}

// SetLogger replaces the store logger.
func (s *Store) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Dir returns the base directory.
func (s *Store) Dir() string {
	return s.base
}

// Put copies r to the local copy of fileID named name, replacing any earlier
// copy of that id, and returns its path.
func (s *Store) Put(fileID, name string, r io.Reader) (string, error) {
	if fileID == "" {
		return "", fmt.Errorf("file id cannot be empty")
	}
	name = cleanName(name)

	key := toKey(fileID, name)
	for _, old := range s.keys(fileID) {
		if old == key {
			continue
		}
		if err := s.d.Erase(old); err != nil {
			return "", fmt.Errorf("failed to replace local copy of %s: %w", fileID, err)
		}
	}

	if err := s.d.WriteStream(key, r, true); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", name, err)
	}

	path := s.pathOf(key)
	s.logger.Printf("Stored %s at %s", fileID, path)
	return path, nil
}

// Path returns the local copy of fileID.
func (s *Store) Path(fileID string) (string, error) {
	keys := s.keys(fileID)
	if len(keys) == 0 {
		return "", ErrNotFound
	}
	return s.pathOf(keys[0]), nil
}

// Open returns a reader for the local copy of fileID.
func (s *Store) Open(fileID string) (io.ReadCloser, error) {
	keys := s.keys(fileID)
	if len(keys) == 0 {
		return nil, ErrNotFound
	}
	return s.d.ReadStream(keys[0], false)
}

// Remove deletes the local copy of fileID. Removing a missing copy is not an
// error.
func (s *Store) Remove(fileID string) error {
	for _, key := range s.keys(fileID) {
		if err := s.d.Erase(key); err != nil {
			return fmt.Errorf("failed to remove local copy of %s: %w", fileID, err)
		}
	}
	return nil
}

// FileIDs returns the ids of all stored copies.
func (s *Store) FileIDs() []string {
	var ids []string
	for key := range s.d.Keys(nil) {
		if id, _, ok := fromKey(key); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Store) keys(fileID string) []string {
	var keys []string
	for key := range s.d.KeysPrefix(hex.EncodeToString([]byte(fileID))+":", nil) {
		keys = append(keys, key)
	}
	return keys
}

func (s *Store) pathOf(key string) string {
	pk := keyToPath(key)
	return filepath.Join(append([]string{s.base}, append(pk.Path, pk.FileName)...)...)
}

// toKey makes `hex(fileID):name`
func toKey(fileID, name string) string {
	return hex.EncodeToString([]byte(fileID)) + ":" + name
}

func fromKey(key string) (fileID, name string, ok bool) {
	enc, name, found := strings.Cut(key, ":")
	if !found {
		return "", "", false
	}
	raw, err := hex.DecodeString(enc)
	if err != nil {
		return "", "", false
	}
	return string(raw), name, true
}

func keyToPath(key string) *diskv.PathKey {
	enc, name, _ := strings.Cut(key, ":")
	return &diskv.PathKey{Path: []string{enc}, FileName: name}
}

func pathToKey(pk *diskv.PathKey) string {
	return strings.Join(pk.Path, "") + ":" + pk.FileName
}

func cleanName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "file"
	}
	return name
}
