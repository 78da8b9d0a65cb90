package cyclon

// Watcher is used to receive notifications when the view changes.
//
// Watcher is called from the goroutine driving Cyclon so must not block or
// call back to Cyclon.
type Watcher interface {
	// OnAdd notifies that a peer was added to the view.
	OnAdd(peer Peer)

	// OnEvict notifies that a peer was replaced by a peer received in a
	// shuffle.
	OnEvict(peer Peer)

	// OnTimeout notifies that a peer was removed as it didn't reply to a
	// shuffle.
	OnTimeout(peer Peer)
}

type nopWatcher struct {
}

func NewNopWatcher() Watcher {
	return &nopWatcher{}
}

func (w *nopWatcher) OnAdd(_ Peer) {}

func (w *nopWatcher) OnEvict(_ Peer) {}

func (w *nopWatcher) OnTimeout(_ Peer) {}

var _ Watcher = &nopWatcher{}
