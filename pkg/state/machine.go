// Package state implements the slot State Machine (§4.D): legal status
// transitions of a test slot.
package state

import "github.com/ormasoftchile/catengine/pkg/model"

// Machine holds the current status of one slot and enforces legal
// transitions. Not safe for concurrent use on its own; callers (Slot
// Context) guard it with their own lock.
type Machine struct {
	current model.SlotStatus
}

// New creates a machine starting at Idle.
func New() *Machine {
	return &Machine{current: model.SlotIdle}
}

// Current returns the current status.
func (m *Machine) Current() model.SlotStatus {
	return m.current
}

// Transition moves to target iff legal; otherwise returns an
// InvalidSlotState error and leaves the status unchanged.
func (m *Machine) Transition(target model.SlotStatus) error {
	if !model.IsLegalSlotTransition(m.current, target) {
		return model.NewInvalidSlotState(m.current, target)
	}
	m.current = target
	return nil
}

// Reset unconditionally moves to Idle.
func (m *Machine) Reset() {
	m.current = model.SlotIdle
}

// ForceState bypasses legality checks. Internal-only: used by the
// executor to enter Running from any terminal state on (re)start.
func (m *Machine) ForceState(target model.SlotStatus) {
	m.current = target
}

func (m *Machine) IsRunning() bool { return m.current == model.SlotRunning }
func (m *Machine) IsPaused() bool  { return m.current == model.SlotPaused }
func (m *Machine) IsIdle() bool    { return m.current == model.SlotIdle }
