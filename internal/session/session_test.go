package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSession_DatabaseSelection(t *testing.T) {
	s := New("s1")
	require.Equal(t, "s1", s.ID)

	_, err := s.Database()
	require.Error(t, err)

	s.Use("app")
	db, err := s.Database()
	require.NoError(t, err)
	require.Equal(t, "app", db)
}

func TestSession_TransactionFlag(t *testing.T) {
	s := New("s1")
	require.False(t, s.InTransaction())

	require.NoError(t, s.Begin())
	require.True(t, s.InTransaction())
	require.Error(t, s.Begin())

	require.NoError(t, s.End())
	require.False(t, s.InTransaction())
	require.Error(t, s.End())
}
