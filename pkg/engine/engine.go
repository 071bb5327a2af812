// Package engine implements the Engine Facade (§4.H): the aggregate of
// slots, the device-type catalog, the step list, slot bindings, the
// callback set, the task registry, and optional persistence.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/ormasoftchile/catengine/pkg/callback"
	"github.com/ormasoftchile/catengine/pkg/config"
	"github.com/ormasoftchile/catengine/pkg/model"
	"github.com/ormasoftchile/catengine/pkg/slot"
	"github.com/ormasoftchile/catengine/pkg/storage"
	"github.com/ormasoftchile/catengine/pkg/task"
	"go.uber.org/zap"
)

// Engine owns all orchestration state for N independent test slots. The
// slot slice is guarded by slotsMu (readers-writer discipline per §5);
// device types and steps are guarded by the same lock since they are
// always mutated together with persistence. Per-slot bindings live on
// each slot.Context and are guarded by that context's own lock.
type Engine struct {
	slotsMu     sync.RWMutex
	slots       []*slot.Context
	deviceTypes map[string]model.DeviceType
	steps       []model.TestStep

	gateway  *callback.Gateway
	registry *task.Registry

	store     storage.Store
	validator *config.Validator
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures optional Engine behavior at construction time.
type Option func(*Engine)

// WithConfigValidation enables JSON-Schema validation of load_config
// payloads before merge.
func WithConfigValidation(v *config.Validator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithLogger overrides the default no-op logger with one the host
// controls (e.g. its own zap.Logger configured for production output).
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine with slotCount slots, all Idle. slotCount must
// be greater than zero.
func New(slotCount int, opts ...Option) (*Engine, error) {
	if slotCount <= 0 {
		return nil, model.NewError(model.ErrInvalidSlotID, "slot_count must be > 0")
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		deviceTypes: make(map[string]model.DeviceType),
		gateway:     callback.NewGateway(),
		registry:    task.NewRegistry(),
		logger:      zap.NewNop(),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.slots = makeSlots(slotCount)
	return e, nil
}

func makeSlots(n int) []*slot.Context {
	slots := make([]*slot.Context, n)
	for i := range slots {
		slots[i] = slot.New(uint32(i))
	}
	return slots
}

// guard recovers from a panic inside fn, logs it once, and returns err
// in its place — the Go-native analog of the C-ABI's ffi_guard! wrapper
// (§5: "every FFI entry point is wrapped by a guard that catches
// unwinding, logs once to standard error, and returns a sentinel failure
// code without propagating across the ABI").
func (e *Engine) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("recovered panic in engine call", zap.Any("panic", r))
			err = model.NewError(model.ErrInternal, fmt.Sprintf("recovered panic: %v", r))
		}
	}()
	return fn()
}

// GetSlotCount returns the number of slots.
func (e *Engine) GetSlotCount() int32 {
	e.slotsMu.RLock()
	defer e.slotsMu.RUnlock()
	return int32(len(e.slots))
}

// SetSlotCount resizes the slot slice: n must be > 0; rejected if any
// slot is Running or Paused. Shrinks truncate the tail; grows append
// fresh Idle slots.
func (e *Engine) SetSlotCount(n int) error {
	return e.guard(func() error {
		if n <= 0 {
			return model.NewError(model.ErrInvalidSlotID, "slot_count must be > 0")
		}
		e.slotsMu.Lock()
		defer e.slotsMu.Unlock()

		for _, s := range e.slots {
			st := s.Status()
			if st == model.SlotRunning || st == model.SlotPaused {
				return model.NewInvalidSlotState(st, model.SlotIdle, model.SlotCompleted, model.SlotError)
			}
		}

		switch {
		case n < len(e.slots):
			e.slots = e.slots[:n]
		case n > len(e.slots):
			for i := len(e.slots); i < n; i++ {
				e.slots = append(e.slots, slot.New(uint32(i)))
			}
		}
		e.persistLocked()
		return nil
	})
}

// slotAt returns the slot context for slotID, under the caller's
// responsibility to hold at least a read lock on slotsMu.
func (e *Engine) slotAt(slotID uint32) (*slot.Context, error) {
	if int(slotID) >= len(e.slots) {
		return nil, model.NewError(model.ErrInvalidSlotID, fmt.Sprintf("slot %d out of range", slotID))
	}
	return e.slots[slotID], nil
}

// Close releases engine resources (the storage handle, if any, and the
// shared context used for in-flight executor goroutines).
func (e *Engine) Close() error {
	e.cancel()
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}
