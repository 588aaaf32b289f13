// Package events carries domain change notifications from the services to
// whoever is listening (the SSE hub, the Redis forwarder). Services publish
// only after their database transaction has committed.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event names follow the entity:action convention.
const (
	InventoryCreated   = "inventory:created"
	InventoryUpdated   = "inventory:updated"
	InventoryDeleted   = "inventory:deleted"
	TransactionCreated = "transaction:created"
	TransactionUpdated = "transaction:updated"
	TransactionDeleted = "transaction:deleted"
	DeliveryCreated    = "delivery:created"
	DeliveryUpdated    = "delivery:updated"
	DeliveryDeleted    = "delivery:deleted"
	SiteCreated        = "site:created"
	SiteUpdated        = "site:updated"
	SiteDeleted        = "site:deleted"
	EmployeeCreated    = "employee:created"
	EmployeeUpdated    = "employee:updated"
	EmployeeDeleted    = "employee:deleted"
	TransferCreated    = "stockTransfer:created"
	TransferUpdated    = "stockTransfer:updated"
	AssetCreated       = "officeAsset:created"
	AssetUpdated       = "officeAsset:updated"
	AssetDeleted       = "officeAsset:deleted"
	AttendanceCreated  = "attendance:created"
	AttendanceUpdated  = "attendance:updated"
	AttendanceDeleted  = "attendance:deleted"
	NotificationSent   = "notification:created"
)

type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
	At   time.Time   `json:"at"`
}

type Handler func(Event)

// Publisher is what services depend on.
type Publisher interface {
	Publish(name string, data interface{})
}

// Bus fans events out to subscribers synchronously, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
	order  []int
	log    *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{subs: make(map[int]Handler), log: log}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = h
	b.order = append(b.order, id)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

func (b *Bus) Publish(name string, data interface{}) {
	ev := Event{Name: name, Data: data, At: time.Now()}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		b.deliver(h, ev)
	}
}

// deliver isolates the bus from a panicking subscriber.
func (b *Bus) deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event subscriber panicked", zap.String("event", ev.Name), zap.Any("panic", r))
		}
	}()
	h(ev)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(string, interface{}) {}
