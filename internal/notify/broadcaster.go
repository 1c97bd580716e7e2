package notify

import (
	"Go2AdversaryLab/internal/model"
	"sync"
)

const defaultBuffer = 16

// Broadcaster fans events out to in-process subscribers. Post never blocks:
// a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int]chan model.Event
	nextID int
	buffer int
}

func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broadcaster{subs: make(map[int]chan model.Event), buffer: buffer}
}

// Subscribe returns a channel of events and a function that cancels the
// subscription and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan model.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan model.Event, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Broadcaster) Post(event model.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Multi posts every event to each notifier in turn.
type Multi []model.Notifier

func (m Multi) Post(event model.Event) {
	for _, n := range m {
		if n != nil {
			n.Post(event)
		}
	}
}
