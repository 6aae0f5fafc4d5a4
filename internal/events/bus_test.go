package events

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan FrameAcquiredEvent, 1)

	unsub := bus.Subscribe(func(e FrameAcquiredEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(FrameAcquiredEvent{SessionID: "s1", FrameID: 42, Width: 640, Height: 480})

	select {
	case got := <-received:
		if got.FrameID != 42 || got.Width != 640 {
			t.Errorf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	stateReceived := make(chan bool, 1)
	conversionReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ SessionStateChangedEvent) {
		stateReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ ConversionFailedEvent) {
		conversionReceived <- true
	})
	defer unsub2()

	bus.Publish(SessionStateChangedEvent{From: "opened", To: "capturing"})
	<-stateReceived

	select {
	case <-conversionReceived:
		t.Fatal("conversion subscriber should not receive state events")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan bool, 1)

	unsub := bus.Subscribe(func(_ ConversionFailedEvent) {
		received <- true
	})
	unsub()

	bus.Publish(ConversionFailedEvent{Reason: "unsupported"})

	select {
	case <-received:
		t.Fatal("should not receive after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_UnknownHandlerIsNoop(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)
	unsub := bus.Subscribe(func(_ FrameAcquiredEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range eventsPerGoroutine {
				bus.Publish(FrameAcquiredEvent{FrameID: uint64(i)})
			}
		}()
	}
	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan SessionStateChangedEvent, 1)
	unsub := SubscribeToChannel(bus, ch)
	defer unsub()

	bus.Publish(SessionStateChangedEvent{To: "opened"})

	select {
	case got := <-ch:
		if got.To != "opened" {
			t.Errorf("To = %q, want opened", got.To)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
