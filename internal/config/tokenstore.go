package config

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/omelentjeff/product-management-app/internal/tokenstore"
)

type backendType string

const (
	BackendFile   backendType = "file"
	BackendBadger backendType = "badger"
	BackendMemory backendType = "memory"
)

type tokenStoreConf struct {
	Backend backendType `yaml:"backend"`
	Path    string      `yaml:"path"`
}

func (c *tokenStoreConf) validate() error {
	switch c.Backend {
	case "":
		c.Backend = BackendFile
	case BackendFile, BackendBadger, BackendMemory:
	default:
		return errors.Errorf("error in token_store conf: unknown backend '%s'", c.Backend)
	}
	return nil
}

// ResolvedPath is the file or directory the backend uses.
func (c tokenStoreConf) ResolvedPath() string {
	if c.Path != "" {
		return c.Path
	}
	switch c.Backend {
	case BackendBadger:
		return filepath.Join(Dir(), "token.db")
	case BackendMemory:
		return ""
	default:
		return filepath.Join(Dir(), "token.json")
	}
}

// OpenStore opens the configured token store. The returned close function
// is never nil.
func (c tokenStoreConf) OpenStore() (tokenstore.Store, func() error, error) {
	noop := func() error { return nil }
	switch c.Backend {
	case BackendMemory:
		return tokenstore.NewMem(), noop, nil
	case BackendBadger:
		s, err := tokenstore.OpenBadger(c.ResolvedPath())
		if err != nil {
			return nil, noop, errors.Wrap(err, "could not open badger token store")
		}
		return s, s.Close, nil
	default:
		return tokenstore.NewFile(c.ResolvedPath()), noop, nil
	}
}
