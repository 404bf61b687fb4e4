package signal

import (
	"testing"
	"time"
)

func TestSignal_NotifyReachesAllSubscribers(t *testing.T) {
	s := New()

	ch1, cancel1 := s.Subscribe()
	ch2, cancel2 := s.Subscribe()
	defer cancel1()
	defer cancel2()

	s.Notify()

	for i, ch := range []<-chan struct{}{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d not woken", i+1)
		}
	}
}

func TestSignal_BurstCoalesces(t *testing.T) {
	s := New()

	ch, cancel := s.Subscribe()
	defer cancel()

	// Subscriber not draining: repeated notifies must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			s.Notify()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a slow subscriber")
	}

	// Exactly one pending wake
	<-ch
	select {
	case <-ch:
		t.Error("expected burst to coalesce into a single wake")
	default:
	}
}

func TestSignal_CancelStopsDelivery(t *testing.T) {
	s := New()

	ch, cancel := s.Subscribe()
	cancel()

	s.Notify()

	// Channel is closed after cancel; receive must not yield a wake value
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after cancel")
	}
}

func TestSignal_CloseWakesAndRejects(t *testing.T) {
	s := New()

	ch, _ := s.Subscribe()
	s.Close()

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after Close")
	}

	// Further operations are no-ops
	s.Notify()
	s.Close()

	ch2, cancel := s.Subscribe()
	defer cancel()
	if _, ok := <-ch2; ok {
		t.Error("expected closed channel from Subscribe after Close")
	}
}
