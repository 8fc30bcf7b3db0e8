// Package events defines the change-event stream the notification fan-out
// consumes. Repositories publish one event per persisted mutation; delivery
// is at-most-once with no ordering guarantee across tables, so consumers
// treat events as hints to refresh, not as authoritative state.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

const (
	TableOrders    = "orders"
	TableProposals = "proposals"
	TableMessages  = "messages"
)

type ChangeEvent struct {
	Table     string          `json:"table"`
	Op        Op              `json:"op"`
	EntityID  uuid.UUID       `json:"entity_id"`
	UpdatedAt time.Time       `json:"updated_at"`
	Old       json.RawMessage `json:"old,omitempty"`
	New       json.RawMessage `json:"new,omitempty"`
}

// NewChange builds a ChangeEvent, serializing the old and new rows. Rows that
// fail to marshal are dropped silently; an event without a payload is still a
// valid refresh hint.
func NewChange(table string, op Op, entityID uuid.UUID, updatedAt time.Time, oldRow, newRow interface{}) ChangeEvent {
	ev := ChangeEvent{Table: table, Op: op, EntityID: entityID, UpdatedAt: updatedAt}
	if oldRow != nil {
		if b, err := json.Marshal(oldRow); err == nil {
			ev.Old = b
		}
	}
	if newRow != nil {
		if b, err := json.Marshal(newRow); err == nil {
			ev.New = b
		}
	}
	return ev
}

func (e ChangeEvent) DecodeNew(dst interface{}) error {
	return json.Unmarshal(e.New, dst)
}

func (e ChangeEvent) DecodeOld(dst interface{}) error {
	return json.Unmarshal(e.Old, dst)
}

type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

type Bus interface {
	Publisher
	// Subscribe returns a channel of change events and a cancel function.
	Subscribe(ctx context.Context) (<-chan ChangeEvent, func(), error)
}

// MemoryBus is an in-process Bus used in tests and as a fallback when no
// redis is configured. Slow subscribers drop events rather than block the
// publisher.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[int]chan ChangeEvent
	next int
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int]chan ChangeEvent)}
}

func (b *MemoryBus) Publish(ctx context.Context, event ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan ChangeEvent, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan ChangeEvent, 64)
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel, nil
}
