package postgres

import (
	"container/list"
	"sync"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
)

// knownStations remembers stations already stored so repeated rows for the
// same station skip the database. Stations are never updated, so the first
// remembered record for an ID is kept. The least recently seen station is
// forgotten once capacity is reached.
type knownStations struct {
	capacity int

	mu     sync.Mutex
	byID   map[string]*list.Element
	recent *list.List // of domain.Station, most recent at the front
}

func newKnownStations(capacity int) *knownStations {
	return &knownStations{
		capacity: max(capacity, 1),
		byID:     make(map[string]*list.Element),
		recent:   list.New(),
	}
}

// lookup returns the stored station for id and marks it as recently seen.
func (k *knownStations) lookup(id string) (domain.Station, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	el, ok := k.byID[id]
	if !ok {
		return domain.Station{}, false
	}
	k.recent.MoveToFront(el)
	return el.Value.(domain.Station), true
}

// remember records st as stored.
func (k *knownStations) remember(st domain.Station) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if el, ok := k.byID[st.StationID]; ok {
		k.recent.MoveToFront(el)
		return
	}
	k.byID[st.StationID] = k.recent.PushFront(st)

	if k.recent.Len() > k.capacity {
		oldest := k.recent.Back()
		k.recent.Remove(oldest)
		delete(k.byID, oldest.Value.(domain.Station).StationID)
	}
}

func (k *knownStations) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.recent.Len()
}
