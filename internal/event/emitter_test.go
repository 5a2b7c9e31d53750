package event

import "testing"

func TestEmitterCallsSubscribersInOrder(t *testing.T) {
	e := NewEmitter()
	var got []int
	e.Subscribe(func() { got = append(got, 1) })
	e.Subscribe(func() { got = append(got, 2) })

	e.Emit()

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Emit() order = %v, want [1 2]", got)
	}
}

func TestEmitterUnsubscribe(t *testing.T) {
	e := NewEmitter()
	calls := 0
	unsubscribe := e.Subscribe(func() { calls++ })

	e.Emit()
	unsubscribe()
	unsubscribe() // second call is a no-op
	e.Emit()

	if calls != 1 {
		t.Errorf("listener called %d times, want 1", calls)
	}
	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0", e.Len())
	}
}

func TestEmitterListenerMayUnsubscribeItself(t *testing.T) {
	e := NewEmitter()
	calls := 0
	var unsubscribe func()
	unsubscribe = e.Subscribe(func() {
		calls++
		unsubscribe()
	})

	e.Emit()
	e.Emit()

	if calls != 1 {
		t.Errorf("listener called %d times, want 1", calls)
	}
}
