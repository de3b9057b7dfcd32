package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSealer(t *testing.T) *Sealer {
	t.Helper()
	key, err := NewKey()
	require.NoError(t, err)
	s, err := New(key)
	require.NoError(t, err)
	return s
}

func TestSealOpen(t *testing.T) {
	s := newSealer(t)
	plain := []byte(`[{"passportNumber":"Z1234567"}]`)

	sealed, err := s.Seal(plain, "savedTravelers")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "Z1234567")

	got, err := s.Open(sealed, "savedTravelers")
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestOpen_WrongLabel(t *testing.T) {
	s := newSealer(t)
	sealed, err := s.Seal([]byte("x"), "a")
	require.NoError(t, err)

	_, err = s.Open(sealed, "b")
	assert.Error(t, err)
}

func TestOpen_Tampered(t *testing.T) {
	s := newSealer(t)
	sealed, err := s.Seal([]byte("hello"), "k")
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = s.Open(sealed, "k")
	assert.Error(t, err)
}

func TestOpen_TooShort(t *testing.T) {
	s := newSealer(t)
	_, err := s.Open([]byte{1, 2, 3}, "k")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestNew_BadKey(t *testing.T) {
	_, err := New([]byte("short"))
	assert.Error(t, err)
}
