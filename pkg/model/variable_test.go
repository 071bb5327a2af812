package model

import "testing"

// TestParseVariablePrefersFloat verifies auto-parse prefers f64 over i64,
// so a plain integer-looking string still yields a float variable.
func TestParseVariablePrefersFloat(t *testing.T) {
	v := ParseVariable("100")
	if v.Kind != VariableFloat {
		t.Fatalf("expected float kind, got %s", v.Kind)
	}
	if f, ok := v.AsF64(); !ok || f != 100.0 {
		t.Errorf("expected 100.0, got %v (ok=%v)", f, ok)
	}
}

func TestParseVariableFallsBackToBytes(t *testing.T) {
	v := ParseVariable("not-a-number")
	if v.Kind != VariableBytes {
		t.Fatalf("expected bytes kind, got %s", v.Kind)
	}
	if v.AsString() != "not-a-number" {
		t.Errorf("unexpected AsString: %q", v.AsString())
	}
}

func TestVariableProjections(t *testing.T) {
	iv := NewIntVariable(42)
	if f, ok := iv.AsF64(); !ok || f != 42.0 {
		t.Errorf("int->f64 projection failed: %v %v", f, ok)
	}
	fv := NewFloatVariable(3.5)
	if i, ok := fv.AsI64(); !ok || i != 3 {
		t.Errorf("float->i64 projection failed: %v %v", i, ok)
	}
	bv := NewBytesVariable([]byte("raw"))
	if _, ok := bv.AsF64(); ok {
		t.Errorf("bytes variable should not project to f64")
	}
}
