package store

import "sync"

// notifier fans out per-table change signals to watchers. Signals are
// edge-triggered and coalescing: a watcher that is mid-query when two writes
// land sees a single pending tick, then re-reads and gets both.
type notifier struct {
	mu   sync.Mutex
	subs map[string]map[int]chan struct{}
	next int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int]chan struct{})}
}

func (n *notifier) notify(table string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[table] {
		select {
		case ch <- struct{}{}:
		default:
			// a tick is already pending, the watcher will re-read anyway
		}
	}
}

// subscribe registers a watcher on table and returns its tick channel plus an
// unsubscribe func. The channel has capacity 1 so notify never blocks.
func (n *notifier) subscribe(table string) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs[table] == nil {
		n.subs[table] = make(map[int]chan struct{})
	}
	id := n.next
	n.next++
	ch := make(chan struct{}, 1)
	n.subs[table][id] = ch

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs[table], id)
	}
}
