// SPDX-License-Identifier: GPL-3.0-or-later
package events

import (
	"sync"
	"sync/atomic"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/sirupsen/logrus"
)

const DefaultBuffer = 64

// Bus fans events out to any number of subscribers. Emit never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[*Subscription]struct{}
	buffer      int
	l           *logrus.Logger
}

type Subscription struct {
	C       <-chan domain.Event
	c       chan domain.Event
	dropped atomic.Int64
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		subscribers: map[*Subscription]struct{}{},
		buffer:      buffer,
		l:           log.Logger(log.LOG_MAIN),
	}
}

func (b *Bus) Subscribe() *Subscription {
	c := make(chan domain.Event, b.buffer)
	sub := &Subscription{C: c, c: c}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe closes the subscription channel. Calling it twice is harmless.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub.c)
}

func (b *Bus) Emit(name string, payload interface{}) {
	event := domain.Event{Name: name, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub.c <- event:
		default:
			dropped := sub.dropped.Add(1)
			b.l.WithFields(logrus.Fields{"event": name, "dropped": dropped}).Debug("Subscriber too slow, dropping event")
		}
	}
	b.l.WithFields(logrus.Fields{"event": name, "subscribers": len(b.subscribers)}).Trace("Emitted event")
}

// Dropped reports how many events this subscriber missed.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
