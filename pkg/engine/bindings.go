package engine

import (
	"strconv"

	"github.com/ormasoftchile/catengine/pkg/model"
)

// SetSlotBinding applies binding to slotID, picking the first instance
// per device type as the active target (§3, §4.H).
func (e *Engine) SetSlotBinding(slotID uint32, binding model.SlotBinding) error {
	return e.guard(func() error {
		e.slotsMu.RLock()
		sc, err := e.slotAt(slotID)
		e.slotsMu.RUnlock()
		if err != nil {
			return err
		}
		sc.SetDeviceBinding(binding)

		e.slotsMu.Lock()
		e.persistLocked()
		e.slotsMu.Unlock()
		return nil
	})
}

// GetSlotBinding returns the binding currently applied to slotID.
func (e *Engine) GetSlotBinding(slotID uint32) (model.SlotBinding, error) {
	e.slotsMu.RLock()
	defer e.slotsMu.RUnlock()
	sc, err := e.slotAt(slotID)
	if err != nil {
		return nil, err
	}
	return sc.Bindings(), nil
}

// slotBindingsSnapshot collects every slot's current binding, keyed by
// slot id as a string (for JSON serialization per §4.H's persistence
// blob shape).
func (e *Engine) slotBindingsSnapshot() map[string]model.SlotBinding {
	out := make(map[string]model.SlotBinding, len(e.slots))
	for _, sc := range e.slots {
		b := sc.Bindings()
		if b != nil {
			out[formatSlotID(sc.SlotID)] = b
		}
	}
	return out
}

func formatSlotID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
