package tokenstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/omelentjeff/product-management-app/internal/errs"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	_, err := s.Load()
	require.ErrorIs(t, err, errs.ErrNoToken)

	require.NoError(t, s.Save("tok"))
	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "tok", got)

	// at most one token: a second save replaces the first
	require.NoError(t, s.Save("tok2"))
	got, err = s.Load()
	require.NoError(t, err)
	require.Equal(t, "tok2", got)

	require.NoError(t, s.Clear())
	_, err = s.Load()
	require.ErrorIs(t, err, errs.ErrNoToken)

	require.NoError(t, s.Clear(), "clearing an empty store is fine")
}

func TestMemStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMem())
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "pmcli", "token.json")
	s := NewFile(p)
	require.Equal(t, p, s.Path())
	exerciseStore(t, s)
}

func TestFileStore_Permissions(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "cfg")
	s := NewFile(filepath.Join(dir, "token.json"))
	require.NoError(t, s.Save("tok"))

	st, err := os.Stat(s.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	dst, err := os.Stat(dir)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o700), dst.Mode().Perm())
}

func TestFileStore_Corrupt(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(p, []byte("not json"), 0o600))
	_, err := NewFile(p).Load()
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNoToken)

	require.NoError(t, os.WriteFile(p, []byte(`{"token":""}`), 0o600))
	_, err = NewFile(p).Load()
	require.ErrorIs(t, err, errs.ErrNoToken)
}

func TestBadgerStore(t *testing.T) {
	t.Parallel()

	s, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestBadgerStore_PersistsAcrossOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := OpenBadger(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save("persisted"))
	require.NoError(t, s.Close())

	s, err = OpenBadger(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "persisted", got)
}

func TestBadgerStore_InMemory(t *testing.T) {
	t.Parallel()

	s, err := OpenBadger("")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}
