package model

import "fmt"

// ErrorKind enumerates the engine's error taxonomy.
type ErrorKind int

const (
	ErrInvalidSlotID ErrorKind = iota
	ErrInvalidSlotState
	ErrConfigParse
	ErrDeviceTypeNotFound
	ErrDeviceInstanceNotFound
	ErrStepNotFound
	ErrParse
	ErrCheck
	ErrExpression
	ErrCallbackNotRegistered
	ErrTaskTimeout
	ErrStorage
	ErrInternal
	ErrExecution
	ErrInterrupted
	ErrTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidSlotID:
		return "invalid_slot_id"
	case ErrInvalidSlotState:
		return "invalid_slot_state"
	case ErrConfigParse:
		return "config_parse_error"
	case ErrDeviceTypeNotFound:
		return "device_type_not_found"
	case ErrDeviceInstanceNotFound:
		return "device_instance_not_found"
	case ErrStepNotFound:
		return "step_not_found"
	case ErrParse:
		return "parse_error"
	case ErrCheck:
		return "check_error"
	case ErrExpression:
		return "expression_error"
	case ErrCallbackNotRegistered:
		return "callback_not_registered"
	case ErrTaskTimeout:
		return "task_timeout"
	case ErrStorage:
		return "storage_error"
	case ErrInternal:
		return "internal_error"
	case ErrExecution:
		return "execution_error"
	case ErrInterrupted:
		return "interrupted"
	case ErrTimeout:
		return "timeout"
	default:
		return "unknown_error"
	}
}

// EngineError is the engine's single structured error type. Current and
// Expected are populated for ErrInvalidSlotState; TimeoutMs for ErrTimeout.
type EngineError struct {
	Kind      ErrorKind
	Message   string
	Current   SlotStatus
	Expected  []SlotStatus
	TimeoutMs int64
}

func (e *EngineError) Error() string {
	switch e.Kind {
	case ErrInvalidSlotState:
		return fmt.Sprintf("invalid slot state: current=%s expected=%v", e.Current, e.Expected)
	case ErrTimeout:
		return fmt.Sprintf("timeout after %dms", e.TimeoutMs)
	default:
		if e.Message != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Message)
		}
		return e.Kind.String()
	}
}

func NewError(kind ErrorKind, message string) *EngineError {
	return &EngineError{Kind: kind, Message: message}
}

func NewInvalidSlotState(current SlotStatus, expected ...SlotStatus) *EngineError {
	return &EngineError{Kind: ErrInvalidSlotState, Current: current, Expected: expected}
}

// Code is the four-valued FFI return code: 0 success, -1 invalid state,
// -2 invalid parameter, -3 internal.
type Code int32

const (
	CodeSuccess       Code = 0
	CodeInvalidState  Code = -1
	CodeInvalidParam  Code = -2
	CodeInternal      Code = -3
)

// CodeFromError maps an error to its FFI-facing numeric code. A nil error
// maps to CodeSuccess; a non-*EngineError maps to CodeInternal.
func CodeFromError(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	ee, ok := err.(*EngineError)
	if !ok {
		return CodeInternal
	}
	switch ee.Kind {
	case ErrInvalidSlotState:
		return CodeInvalidState
	case ErrInvalidSlotID, ErrConfigParse, ErrDeviceTypeNotFound,
		ErrDeviceInstanceNotFound, ErrStepNotFound, ErrParse, ErrCheck,
		ErrExpression:
		return CodeInvalidParam
	default:
		return CodeInternal
	}
}
