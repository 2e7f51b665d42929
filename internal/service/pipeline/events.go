package pipeline

import (
	"sync"
	"time"
)

// Update is one sequenced state change delivered to subscribers
type Update struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	State     State     `json:"state"`
}

const subscriberBuffer = 64

// notifier fans state changes out to subscriber channels. Publishing
// never blocks; a subscriber that stops draining loses updates rather
// than stalling the pipeline.
type notifier struct {
	mu   sync.Mutex
	seq  int64
	subs []chan Update
}

func (n *notifier) subscribe() <-chan Update {
	ch := make(chan Update, subscriberBuffer)
	n.mu.Lock()
	n.subs = append(n.subs, ch)
	n.mu.Unlock()
	return ch
}

func (n *notifier) publish(s State) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.seq++
	update := Update{Seq: n.seq, Timestamp: time.Now().UTC(), State: s}
	for _, ch := range n.subs {
		select {
		case ch <- update:
		default:
		}
	}
}
