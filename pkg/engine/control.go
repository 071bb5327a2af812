package engine

import (
	"fmt"

	"github.com/ormasoftchile/catengine/pkg/executor"
	"github.com/ormasoftchile/catengine/pkg/model"
	"github.com/ormasoftchile/catengine/pkg/slot"
	"github.com/ormasoftchile/catengine/pkg/task"
	"go.uber.org/zap"
)

// snapshotFor builds an executor.Snapshot from current engine state —
// cloned, per §9, so the spawned executor goroutine never reaches back
// into live engine state.
func (e *Engine) snapshotFor() executor.Snapshot {
	e.slotsMu.RLock()
	defer e.slotsMu.RUnlock()
	return executor.Snapshot{
		Steps:       e.stepsSnapshot(),
		DeviceTypes: e.deviceTypesSnapshot(),
		Gateway:     e.gateway,
		Registry:    e.registry,
	}
}

// StartSlot spawns the step executor for slotID on the engine's worker
// pool (non-blocking).
func (e *Engine) StartSlot(slotID uint32) error {
	return e.guard(func() error {
		e.slotsMu.RLock()
		sc, err := e.slotAt(slotID)
		e.slotsMu.RUnlock()
		if err != nil {
			return err
		}
		executor.Spawn(e.ctx, sc, e.snapshotFor())
		return nil
	})
}

// StartAllSlots starts every slot, collecting (not short-circuiting on)
// per-slot errors.
func (e *Engine) StartAllSlots() error {
	return e.forEachSlot(e.StartSlot)
}

func (e *Engine) forEachSlot(fn func(uint32) error) error {
	e.slotsMu.RLock()
	n := len(e.slots)
	e.slotsMu.RUnlock()

	var errs []error
	for i := 0; i < n; i++ {
		if err := fn(uint32(i)); err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		msg := ""
		for i, err := range errs {
			if i > 0 {
				msg += "; "
			}
			msg += err.Error()
		}
		return model.NewError(model.ErrInternal, msg)
	}
	return nil
}

func (e *Engine) sendSignal(slotID uint32, sig slot.ControlSignal) error {
	return e.guard(func() error {
		e.slotsMu.RLock()
		sc, err := e.slotAt(slotID)
		e.slotsMu.RUnlock()
		if err != nil {
			return err
		}
		sc.SendControl(sig)
		return nil
	})
}

func (e *Engine) PauseSlot(slotID uint32) error       { return e.sendSignal(slotID, slot.SignalPause) }
func (e *Engine) ResumeSlot(slotID uint32) error      { return e.sendSignal(slotID, slot.SignalResume) }
func (e *Engine) StopSlot(slotID uint32) error        { return e.sendSignal(slotID, slot.SignalStop) }
func (e *Engine) StepNext(slotID uint32) error        { return e.sendSignal(slotID, slot.SignalStepNext) }
func (e *Engine) SkipCurrentStep(slotID uint32) error { return e.sendSignal(slotID, slot.SignalSkipCurrent) }

func (e *Engine) PauseAllSlots() error  { return e.forEachSlot(e.PauseSlot) }
func (e *Engine) ResumeAllSlots() error { return e.forEachSlot(e.ResumeSlot) }
func (e *Engine) StopAllSlots() error   { return e.forEachSlot(e.StopSlot) }

// SubmitResult delivers a successful result for taskID, which must have
// been registered for slotID.
func (e *Engine) SubmitResult(slotID uint32, taskID uint64, data []byte) error {
	return e.submit(slotID, taskID, task.Result{Kind: task.ResultOk, Data: data})
}

// SubmitTimeout delivers a timeout for taskID.
func (e *Engine) SubmitTimeout(slotID uint32, taskID uint64) error {
	return e.submit(slotID, taskID, task.Result{Kind: task.ResultTimeout})
}

// SubmitError delivers an error result for taskID.
func (e *Engine) SubmitError(slotID uint32, taskID uint64, message string) error {
	return e.submit(slotID, taskID, task.Result{Kind: task.ResultError, Message: message})
}

func (e *Engine) submit(slotID uint32, taskID uint64, result task.Result) error {
	return e.guard(func() error {
		if e.registry.SlotIDMismatch(taskID, slotID) {
			e.logger.Warn("submit targeted wrong slot_id", zap.Uint32("slot_id", slotID), zap.Uint64("task_id", taskID))
		}
		if !e.registry.Submit(taskID, slotID, result) {
			return model.NewError(model.ErrInternal, "task_id not found or slot_id mismatch")
		}
		return nil
	})
}
