// Package workman reserves peer nodes for tasks out of the hub's known peer
// set, a single process-wide table guarded by a mutex. Grounded on
// original_source/src/workman.rs.
package workman

import (
	"math/rand"
	"sync"
	"time"

	"github.com/prekucki/gu-blender-mediator/internal/xerrors"
)

// ErrNoFreeNode is returned when no peer currently lacks a live reservation.
var ErrNoFreeNode = xerrors.New("no free node")

type reservation struct {
	taskID        string
	reservedUntil time.Time
}

func newReservation(taskID string, deadline int64) reservation {
	return reservation{taskID: taskID, reservedUntil: time.Unix(deadline, 0)}
}

func (r reservation) isValid(now time.Time) bool {
	return !r.reservedUntil.Before(now)
}

// PeerLister abstracts the hub connection's known-peer listing, so WorkMan
// can be tested without a live hub.
type PeerLister interface {
	ListPeers() ([]string, error)
}

// WorkMan is the process-wide peer reservation registry. The zero value is
// not usable; construct with New.
type WorkMan struct {
	mu           sync.Mutex
	peers        PeerLister
	reservations map[string]reservation
	now          func() time.Time
}

// New builds a WorkMan backed by peers. Its clock is time.Now; tests in
// this package overwrite the now field.
func New(peers PeerLister) *WorkMan {
	return &WorkMan{
		peers:        peers,
		reservations: make(map[string]reservation),
		now:          time.Now,
	}
}

func (w *WorkMan) isFreeToUse(peerID string, now time.Time) bool {
	r, ok := w.reservations[peerID]
	if !ok {
		return true
	}
	return !r.isValid(now)
}

// Reserve picks a random peer with no live reservation, reserves it for
// taskID until deadline (unix seconds), and returns its id. Returns
// ErrNoFreeNode if every known peer is already reserved.
func (w *WorkMan) Reserve(taskID string, deadline int64) (string, error) {
	peers, err := w.peers.ListPeers()
	if err != nil {
		return "", xerrors.Wrap(err, "failed to list peers")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	var free []string
	for _, p := range peers {
		if w.isFreeToUse(p, now) {
			free = append(free, p)
		}
	}

	if len(free) == 0 {
		return "", ErrNoFreeNode
	}

	chosen := free[rand.Intn(len(free))]
	w.reservations[chosen] = newReservation(taskID, deadline)
	return chosen, nil
}

// Release drops a peer's reservation early, e.g. once its subtask completes.
func (w *WorkMan) Release(peerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.reservations, peerID)
}
