package overlap

import (
	"sync"

	"github.com/aukilabs/kenaz/messages"
	"github.com/aukilabs/kenaz/models"
)

// State keeps the last overlap results of a scene against other scenes.
type State struct {
	mutex   sync.RWMutex
	results map[uint32]result
}

type result struct {
	version      uint64
	otherUUID    string
	otherVersion uint64
	boundsOnly   bool
	pairs        []messages.OverlapPair
}

// Pairs returns the cached overlap pairs against other. Results computed for
// other scene geometry versions are ignored.
func (s *State) Pairs(version uint64, other *models.Scene, otherVersion uint64, boundsOnly bool) ([]messages.OverlapPair, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	r, ok := s.results[other.ID]
	if !ok ||
		r.version != version ||
		r.otherUUID != other.UUID ||
		r.otherVersion != otherVersion ||
		r.boundsOnly != boundsOnly {
		return nil, false
	}
	return r.pairs, true
}

func (s *State) SetPairs(version uint64, other *models.Scene, otherVersion uint64, boundsOnly bool, pairs []messages.OverlapPair) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.results == nil {
		s.results = make(map[uint32]result)
	}

	s.results[other.ID] = result{
		version:      version,
		otherUUID:    other.UUID,
		otherVersion: otherVersion,
		boundsOnly:   boundsOnly,
		pairs:        pairs,
	}
}

func (s *State) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.results)
}
