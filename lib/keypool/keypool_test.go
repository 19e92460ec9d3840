package keypool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRotateAdvancesAndPersists(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "keys.json")
	m := New([]string{"a", "b", "c"}, statePath)

	key, err := m.Current()
	require.NoError(t, err)
	require.Equal(t, "a", key)

	require.True(t, m.Rotate("credits_exhausted"))
	key, err = m.Current()
	require.NoError(t, err)
	require.Equal(t, "b", key)

	// a fresh manager over the same state file resumes where we left off
	m2 := New([]string{"a", "b", "c"}, statePath)
	key, err = m2.Current()
	require.NoError(t, err)
	require.Equal(t, "b", key)
	require.Equal(t, 2, m2.Status().Active)
}

func TestRotateExhaustsPool(t *testing.T) {
	m := New([]string{"a", "b"}, "")

	require.True(t, m.Rotate("credits_exhausted"))
	require.False(t, m.Rotate("credits_exhausted"))

	_, err := m.Current()
	require.ErrorIs(t, err, ErrNoKeys)
}

func TestSingleKeyPoolNeverRotates(t *testing.T) {
	m := New([]string{"only"}, "")

	require.False(t, m.Rotate("server_error"))
	key, err := m.Current()
	require.NoError(t, err)
	require.Equal(t, "only", key)
	require.Equal(t, 1, m.Status().Active)
}

func TestEmptyPool(t *testing.T) {
	m := New(nil, "")
	require.Equal(t, 0, m.Size())
	_, err := m.Current()
	require.ErrorIs(t, err, ErrNoKeys)
}

func TestMissingStateFileMeansFreshPool(t *testing.T) {
	m := New([]string{"a", "b"}, filepath.Join(t.TempDir(), "nope", "keys.json"))
	key, err := m.Current()
	require.NoError(t, err)
	require.Equal(t, "a", key)
}

func TestResetClearsExhausted(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "keys.json")
	m := New([]string{"a", "b"}, statePath)
	require.True(t, m.Rotate("credits_exhausted"))
	require.False(t, m.Rotate("credits_exhausted"))

	m.Reset()
	key, err := m.Current()
	require.NoError(t, err)
	require.Equal(t, "a", key)
	require.Equal(t, 2, m.Status().Active)
}
