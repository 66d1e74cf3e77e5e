package store

import "context"

// watch turns a point-in-time query into a live stream: the current snapshot
// is delivered on subscribe, then a fresh one after every write to table.
// The channel closes when ctx is done. A slow receiver only ever delays the
// next snapshot, it never blocks writers.
func watch[T any](ctx context.Context, n *notifier, table string, query func(context.Context) (T, error)) <-chan T {
	out := make(chan T, 1)
	ticks, unsubscribe := n.subscribe(table)

	go func() {
		defer close(out)
		defer unsubscribe()

		send := func() bool {
			snapshot, err := query(ctx)
			if err != nil {
				// storage errors end the stream, the subscriber can re-Watch
				return false
			}
			select {
			case out <- snapshot:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticks:
				if !send() {
					return
				}
			}
		}
	}()

	return out
}
