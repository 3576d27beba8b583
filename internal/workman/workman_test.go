package workman

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPeers []string

func (f fixedPeers) ListPeers() ([]string, error) {
	return []string(f), nil
}

func TestReserveExcludesLiveReservations(t *testing.T) {
	w := New(fixedPeers{"peer-a", "peer-b"})
	clock := time.Unix(1000, 0)
	w.now = func() time.Time { return clock }

	first, err := w.Reserve("task-1", 2000)
	require.NoError(t, err)

	second, err := w.Reserve("task-2", 2000)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "expected distinct peers")

	_, err = w.Reserve("task-3", 2000)
	assert.ErrorIs(t, err, ErrNoFreeNode, "expected ErrNoFreeNode once both peers are reserved")
}

func TestReserveAfterDeadlineExpires(t *testing.T) {
	w := New(fixedPeers{"only-peer"})
	clock := time.Unix(1000, 0)
	w.now = func() time.Time { return clock }

	_, err := w.Reserve("task-1", 1500)
	require.NoError(t, err)

	_, err = w.Reserve("task-2", 1500)
	assert.Error(t, err, "expected the peer to still be reserved")

	clock = time.Unix(1600, 0)
	got, err := w.Reserve("task-3", 2000)
	require.NoError(t, err, "expected the expired reservation to free the peer")
	assert.Equal(t, "only-peer", got)
}

func TestReleaseFreesPeerEarly(t *testing.T) {
	w := New(fixedPeers{"only-peer"})
	_, err := w.Reserve("task-1", 9999999999)
	require.NoError(t, err)

	w.Release("only-peer")

	_, err = w.Reserve("task-2", 9999999999)
	assert.NoError(t, err, "expected Release to free the peer immediately")
}
