package tokenstore

import (
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/omelentjeff/product-management-app/internal/errs"
)

// BadgerStore keeps the token in an embedded badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the database in dir. An empty dir gives an
// in-memory database.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Load() (string, error) {
	var token []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(Key))
		if err != nil {
			return err
		}
		token, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) || (err == nil && len(token) == 0) {
		return "", errs.ErrNoToken
	}
	if err != nil {
		return "", err
	}
	return string(token), nil
}

func (s *BadgerStore) Save(token string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(Key), []byte(token))
	})
}

func (s *BadgerStore) Clear() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(Key))
	})
}

// Close releases the database.
func (s *BadgerStore) Close() error { return s.db.Close() }
