package events

import (
	"sync"

	"github.com/username/cashflow/src/models"
)

// Bus fans store-change events out to in-process subscribers. Publish calls
// every subscriber synchronously in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(models.Event)
	order  []int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(models.Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(models.Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *Bus) Publish(ev models.Event) {
	b.mu.RLock()
	fns := make([]func(models.Event), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
