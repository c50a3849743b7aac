// Package sse streams entry change notifications to HTTP clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	EntryCreated   = "entry.created"
	EntryUpdated   = "entry.updated"
	EntryDeleted   = "entry.deleted"
	EntriesChanged = "entries.changed"
)

const clientBuffer = 64

// Event is one message on the stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Broker fans events out to subscribed clients.
//
// One loop goroutine owns the subscriber set, the event sequence and the
// entries.changed throttle; everything else talks to it over channels.
type Broker struct {
	throttle time.Duration

	joinCh  chan chan []byte
	leaveCh chan chan []byte
	eventCh chan Event
	countCh chan chan int

	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewBroker creates a broker that emits at most one entries.changed event
// per throttle interval. Per-entry events are never throttled.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	b := &Broker{
		throttle: throttle,
		joinCh:   make(chan chan []byte),
		leaveCh:  make(chan chan []byte),
		eventCh:  make(chan Event, 256),
		countCh:  make(chan chan int),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go b.loop()
	return b
}

// frame renders an event in text/event-stream form with a sequence id.
func frame(seq uint64, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, ev.Type, payload)), nil
}

func (b *Broker) loop() {
	defer close(b.done)

	subs := make(map[chan []byte]struct{})
	var seq uint64
	var lastChanged time.Time

	for {
		select {
		case <-b.quit:
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-b.joinCh:
			subs[ch] = struct{}{}

		case ch := <-b.leaveCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case ev := <-b.eventCh:
			if ev.Type == EntriesChanged {
				if time.Since(lastChanged) < b.throttle {
					continue
				}
				lastChanged = time.Now()
			}
			seq++
			msg, err := frame(seq, ev)
			if err != nil {
				continue
			}
			for ch := range subs {
				select {
				case ch <- msg:
				default:
					// Client buffer full; drop for this client only.
				}
			}

		case reply := <-b.countCh:
			reply <- len(subs)
		}
	}
}

// Close stops the loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.joinCh <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leaveCh <- ch:
	case <-b.done:
	}
}

// ClientCount reports the number of subscribers.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	reply := make(chan int, 1)
	select {
	case b.countCh <- reply:
	case <-b.done:
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-b.done:
		return 0
	}
}

// Publish queues an event for every subscriber.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.eventCh <- ev:
	case <-b.done:
	}
}

// PublishEntryEvent announces a change to one entry. kind is one of
// EntryCreated, EntryUpdated or EntryDeleted.
func (b *Broker) PublishEntryEvent(kind, id string) {
	b.Publish(Event{Type: kind, Data: map[string]string{"id": id}})
}

// PublishChanged announces that the store changed outside the API, carrying
// the entry count after a re-scan.
func (b *Broker) PublishChanged(count int) {
	b.Publish(Event{Type: EntriesChanged, Data: map[string]int{"count": count}})
}

// ServeHTTP streams events to one client until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
