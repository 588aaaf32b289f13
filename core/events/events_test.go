package events

import (
	"testing"

	"go.uber.org/zap"
)

func TestBus_PublishInOrder(t *testing.T) {
	b := NewBus(zap.NewNop())
	var got []string
	b.Subscribe(func(ev Event) { got = append(got, "a:"+ev.Name) })
	b.Subscribe(func(ev Event) { got = append(got, "b:"+ev.Name) })

	b.Publish(TransactionCreated, map[string]int{"id": 1})

	if len(got) != 2 || got[0] != "a:transaction:created" || got[1] != "b:transaction:created" {
		t.Errorf("delivered = %v", got)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus(nil)
	calls := 0
	cancel := b.Subscribe(func(Event) { calls++ })
	b.Publish(SiteCreated, nil)
	cancel()
	b.Publish(SiteCreated, nil)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBus_PanickingSubscriber(t *testing.T) {
	b := NewBus(zap.NewNop())
	b.Subscribe(func(Event) { panic("boom") })
	delivered := false
	b.Subscribe(func(Event) { delivered = true })
	b.Publish(DeliveryCreated, nil)
	if !delivered {
		t.Error("second subscriber should still receive the event")
	}
}
