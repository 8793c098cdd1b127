package lock

import (
	"testing"

	"github.com/stretchr/testify/require"

	sageerrors "sage.dev/sage/internal/errors"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()

	l := New(dir, "auth")
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Release())

	// Reacquirable after release
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Release())
}

func TestContentionFailsFast(t *testing.T) {
	dir := t.TempDir()

	first := New(dir, "auth")
	require.NoError(t, first.Acquire())
	defer first.Release()

	second := New(dir, "auth")
	err := second.Acquire()
	require.ErrorIs(t, err, sageerrors.ErrLockContention)
}

func TestStacksLockIndependently(t *testing.T) {
	dir := t.TempDir()

	first := New(dir, "auth")
	require.NoError(t, first.Acquire())
	defer first.Release()

	other := New(dir, "billing")
	require.NoError(t, other.Acquire())
	require.NoError(t, other.Release())
}

func TestReleaseWithoutAcquire(t *testing.T) {
	l := New(t.TempDir(), "auth")
	require.NoError(t, l.Release())
}
