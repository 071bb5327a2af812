package task

import "testing"

func TestRegisterSubmitDeliversResult(t *testing.T) {
	r := NewRegistry()
	id := NextID()
	ch := r.Register(id, 5)

	if !r.Submit(id, 5, Result{Kind: ResultOk, Data: []byte("3.30")}) {
		t.Fatal("expected Submit to succeed for a matching slot id")
	}
	got := <-ch
	if got.Kind != ResultOk || string(got.Data) != "3.30" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestSubmitSlotIDMismatchRejected(t *testing.T) {
	r := NewRegistry()
	id := NextID()
	r.Register(id, 5)

	if r.Submit(id, 9, Result{Kind: ResultOk}) {
		t.Error("expected Submit to reject a mismatched slot id")
	}
	if !r.SlotIDMismatch(id, 9) {
		t.Error("expected SlotIDMismatch to report true")
	}
}

func TestSubmitUnknownTaskIDRejected(t *testing.T) {
	r := NewRegistry()
	if r.Submit(999, 0, Result{Kind: ResultOk}) {
		t.Error("expected Submit to fail for an unregistered task id")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	r := NewRegistry()
	id := NextID()
	r.Register(id, 0)
	r.Cancel(id)
	r.Cancel(id)
	if r.Submit(id, 0, Result{Kind: ResultOk}) {
		t.Error("expected Submit to fail after Cancel removed the entry")
	}
}

func TestNextIDIsMonotonic(t *testing.T) {
	a := NextID()
	b := NextID()
	if b <= a {
		t.Errorf("expected b > a, got a=%d b=%d", a, b)
	}
}
