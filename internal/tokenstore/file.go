package tokenstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/omelentjeff/product-management-app/internal/errs"
)

type tokenFile struct {
	Token string `json:"token"`
}

// FileStore keeps the token in a JSON file readable only by the owner.
type FileStore struct {
	path string
}

// NewFile returns a store backed by the file at path.
func NewFile(path string) *FileStore { return &FileStore{path: path} }

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load() (string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", errs.ErrNoToken
	}
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.Token == "" {
		return "", errs.ErrNoToken
	}
	return tf.Token, nil
}

func (s *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(tokenFile{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

// Clear removes the file; a missing file is not an error.
func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

