package engine

import "encoding/json"

type slotStatusJSON struct {
	SlotID     uint32 `json:"slot_id"`
	SN         string `json:"sn"`
	Status     string `json:"status"`
	CurrentStep int   `json:"current_step"`
	StartTime  int64  `json:"start_time"`
	DurationMs int64  `json:"duration_ms"`
	LastError  string `json:"last_error,omitempty"`
}

// GetSlotStatusJSON returns slotID's status in the §6 response shape.
func (e *Engine) GetSlotStatusJSON(slotID uint32) ([]byte, error) {
	e.slotsMu.RLock()
	sc, err := e.slotAt(slotID)
	e.slotsMu.RUnlock()
	if err != nil {
		return nil, err
	}
	startTime, _ := sc.StartTimeMs()
	status := slotStatusJSON{
		SlotID:      sc.SlotID,
		SN:          sc.SN(),
		Status:      sc.Status().String(),
		CurrentStep: sc.CurrentStepIndex(),
		StartTime:   startTime,
		DurationMs:  sc.ElapsedMs(),
		LastError:   sc.LastError(),
	}
	return json.Marshal(status)
}

// SetSlotSN sets slotID's serial number. Rejected with InvalidSlotState
// while the slot is Running (§5).
func (e *Engine) SetSlotSN(slotID uint32, sn string) error {
	return e.guard(func() error {
		e.slotsMu.RLock()
		sc, err := e.slotAt(slotID)
		e.slotsMu.RUnlock()
		if err != nil {
			return err
		}
		return sc.SetSN(sn)
	})
}

// GetSlotSN returns slotID's serial number.
func (e *Engine) GetSlotSN(slotID uint32) (string, error) {
	e.slotsMu.RLock()
	sc, err := e.slotAt(slotID)
	e.slotsMu.RUnlock()
	if err != nil {
		return "", err
	}
	return sc.SN(), nil
}

// ClearSlotSN clears slotID's serial number.
func (e *Engine) ClearSlotSN(slotID uint32) error {
	return e.guard(func() error {
		e.slotsMu.RLock()
		sc, err := e.slotAt(slotID)
		e.slotsMu.RUnlock()
		if err != nil {
			return err
		}
		return sc.ClearSN()
	})
}
