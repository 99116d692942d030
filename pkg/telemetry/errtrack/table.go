package errtrack

import (
	"container/list"
	"time"
)

// entry is one signature's row in the count table.
type entry struct {
	signature string
	typeName  string
	message   string
	operation string
	count     int64
	firstSeen time.Time
	lastSeen  time.Time
}

// table is an LRU-ordered signature -> entry map. Callers hold the
// aggregator's lock.
type table struct {
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = most recently seen
}

func newTable(maxSize int) *table {
	return &table{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// touch returns the entry for sig, creating it if needed, and marks it most
// recently seen. evicted is the entry pushed out to stay within maxSize.
func (t *table) touch(sig string, now time.Time, create func() *entry) (e *entry, evicted *entry) {
	if el, ok := t.items[sig]; ok {
		t.order.MoveToFront(el)
		e = el.Value.(*entry)
		e.lastSeen = now
		return e, nil
	}

	e = create()
	e.firstSeen = now
	e.lastSeen = now
	t.items[sig] = t.order.PushFront(e)

	if len(t.items) > t.maxSize {
		if back := t.order.Back(); back != nil {
			evicted = back.Value.(*entry)
			t.remove(back)
		}
	}
	return e, evicted
}

func (t *table) remove(el *list.Element) {
	t.order.Remove(el)
	delete(t.items, el.Value.(*entry).signature)
}

// pruneIdle removes entries last seen before cutoff. Since the list is kept
// in recency order the scan stops at the first fresh entry.
func (t *table) pruneIdle(cutoff time.Time) int {
	removed := 0
	for el := t.order.Back(); el != nil; {
		e := el.Value.(*entry)
		if !e.lastSeen.Before(cutoff) {
			break
		}
		prev := el.Prev()
		t.remove(el)
		removed++
		el = prev
	}
	return removed
}

func (t *table) len() int {
	return len(t.items)
}
