package versioned

import (
	"fmt"
	"sort"
	"sync"
)

// Arena is an in-memory Backend. All snapshots live in one append-only slice
// and each key indexes its own positions in it.
type Arena struct {
	mu    sync.RWMutex
	snaps []Snapshot
	index map[string][]int
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{index: make(map[string][]int)}
}

func (a *Arena) Latest(key string) (Snapshot, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	pos := a.index[key]
	if len(pos) == 0 {
		return Snapshot{}, false, nil
	}
	return clone(a.snaps[pos[len(pos)-1]]), true, nil
}

func (a *Arena) Range(start, end string) ([]Snapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	keys := make([]string, 0, len(a.index))
	for k := range a.index {
		if k < start || (end != "" && k >= end) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		pos := a.index[k]
		s := a.snaps[pos[len(pos)-1]]
		if s.IsDelete {
			continue
		}
		out = append(out, clone(s))
	}
	return out, nil
}

func (a *Arena) Versions(key string) ([]Snapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	pos := a.index[key]
	out := make([]Snapshot, 0, len(pos))
	for _, p := range pos {
		out = append(out, clone(a.snaps[p]))
	}
	return out, nil
}

func (a *Arena) Commit(b Batch) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range b.Reads {
		if cur := a.seqLocked(r.Key); cur != r.Seq {
			return fmt.Errorf("%w: key %q read at version %d, now %d", ErrConflict, r.Key, r.Seq, cur)
		}
	}
	for _, w := range b.Writes {
		a.snaps = append(a.snaps, Snapshot{
			Key:       w.Key,
			Seq:       uint64(len(a.snaps) + 1),
			TxID:      b.TxID,
			Timestamp: b.Timestamp,
			Value:     append([]byte(nil), w.Value...),
		})
		a.index[w.Key] = append(a.index[w.Key], len(a.snaps)-1)
	}
	return nil
}

func (a *Arena) seqLocked(key string) uint64 {
	pos := a.index[key]
	if len(pos) == 0 {
		return 0
	}
	return a.snaps[pos[len(pos)-1]].Seq
}

func clone(s Snapshot) Snapshot {
	s.Value = append([]byte(nil), s.Value...)
	return s
}
