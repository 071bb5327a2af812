package model

import (
	"fmt"
	"strconv"
)

// VariableKind tags the active field of a Variable.
type VariableKind int

const (
	VariableInt VariableKind = iota
	VariableFloat
	VariableBytes
	VariableFloatArray
)

func (k VariableKind) String() string {
	switch k {
	case VariableInt:
		return "int"
	case VariableFloat:
		return "float"
	case VariableBytes:
		return "bytes"
	case VariableFloatArray:
		return "float_array"
	default:
		return "unknown"
	}
}

// Variable is a tagged value stored in a slot's pool.
// Exactly one of the fields below is meaningful, selected by Kind.
type Variable struct {
	Kind       VariableKind
	IntVal     int64
	FloatVal   float64
	BytesVal   []byte
	FloatArray []float64
}

func NewIntVariable(v int64) Variable        { return Variable{Kind: VariableInt, IntVal: v} }
func NewFloatVariable(v float64) Variable     { return Variable{Kind: VariableFloat, FloatVal: v} }
func NewBytesVariable(v []byte) Variable      { return Variable{Kind: VariableBytes, BytesVal: v} }
func NewFloatArrayVariable(v []float64) Variable {
	return Variable{Kind: VariableFloatArray, FloatArray: v}
}

// AsF64 is a total projection to float64: Int casts, Float passes through,
// everything else is absent.
func (v Variable) AsF64() (float64, bool) {
	switch v.Kind {
	case VariableInt:
		return float64(v.IntVal), true
	case VariableFloat:
		return v.FloatVal, true
	default:
		return 0, false
	}
}

// AsI64 is the symmetric projection to int64.
func (v Variable) AsI64() (int64, bool) {
	switch v.Kind {
	case VariableInt:
		return v.IntVal, true
	case VariableFloat:
		return int64(v.FloatVal), true
	default:
		return 0, false
	}
}

// AsString renders a display form of the variable.
func (v Variable) AsString() string {
	switch v.Kind {
	case VariableInt:
		return strconv.FormatInt(v.IntVal, 10)
	case VariableFloat:
		return strconv.FormatFloat(v.FloatVal, 'f', 6, 64)
	case VariableBytes:
		return string(v.BytesVal)
	case VariableFloatArray:
		return fmt.Sprintf("%v", v.FloatArray)
	default:
		return ""
	}
}

// ParseVariable auto-parses text into a Variable: prefer f64, else i64,
// else raw bytes.
func ParseVariable(text string) Variable {
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return NewFloatVariable(f)
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return NewIntVariable(i)
	}
	return NewBytesVariable([]byte(text))
}
