package index

import (
	"github.com/google/uuid"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls further behind misses intermediate snapshots rather than delaying
// anyone else; the next notification carries the full current state anyway.
const subscriberBuffer = 8

// Subscribe registers a change listener. Watches start lazily with the first
// subscriber. The returned channel receives the full snapshot after every
// committed refresh whose fingerprint changed, and is closed on Unsubscribe.
func (ix *Index) Subscribe() (string, <-chan []ConversationSummary, error) {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()

	if len(ix.subscribers) == 0 {
		if err := ix.setupWatchesLocked(); err != nil {
			return "", nil, err
		}
	}

	id := uuid.NewString()
	ch := make(chan []ConversationSummary, subscriberBuffer)
	ix.subscribers[id] = ch
	return id, ch, nil
}

// Unsubscribe removes a listener and closes its channel. The last
// unsubscribe synchronously tears down all watches and pending timers.
func (ix *Index) Unsubscribe(id string) {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()

	ch, ok := ix.subscribers[id]
	if !ok {
		return
	}
	delete(ix.subscribers, id)
	close(ch)

	if len(ix.subscribers) == 0 {
		ix.teardownWatchesLocked()
	}
}

// SubscriberCount reports the number of registered listeners.
func (ix *Index) SubscriberCount() int {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()
	return len(ix.subscribers)
}

// notify fans a committed snapshot out to every subscriber. Delivery is
// non-blocking: a full channel drops this snapshot for that subscriber.
func (ix *Index) notify(snapshot []ConversationSummary) {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()

	for id, ch := range ix.subscribers {
		select {
		case ch <- snapshot:
		default:
			ix.log.WithField("subscriber", id).Debug("dropping notification for slow subscriber")
		}
	}
}
