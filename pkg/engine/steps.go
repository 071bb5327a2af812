package engine

import "github.com/ormasoftchile/catengine/pkg/model"

// AddTestStep appends step to the engine's step list.
func (e *Engine) AddTestStep(step model.TestStep) error {
	return e.guard(func() error {
		e.slotsMu.Lock()
		defer e.slotsMu.Unlock()
		for _, s := range e.steps {
			if s.StepID == step.StepID {
				return model.NewError(model.ErrConfigParse, "duplicate step_id")
			}
		}
		e.steps = append(e.steps, step)
		e.persistLocked()
		return nil
	})
}

// UpdateTestStep replaces the step identified by stepID with updated.
// updated.StepID is forced to stepID regardless of its own value.
func (e *Engine) UpdateTestStep(stepID int64, updated model.TestStep) error {
	return e.guard(func() error {
		e.slotsMu.Lock()
		defer e.slotsMu.Unlock()
		for i, s := range e.steps {
			if s.StepID == stepID {
				updated.StepID = stepID
				e.steps[i] = updated
				e.persistLocked()
				return nil
			}
		}
		return model.NewError(model.ErrStepNotFound, "")
	})
}

// RemoveTestStep removes the step identified by stepID.
func (e *Engine) RemoveTestStep(stepID int64) error {
	return e.guard(func() error {
		e.slotsMu.Lock()
		defer e.slotsMu.Unlock()
		for i, s := range e.steps {
			if s.StepID == stepID {
				e.steps = append(e.steps[:i], e.steps[i+1:]...)
				e.persistLocked()
				return nil
			}
		}
		return model.NewError(model.ErrStepNotFound, "")
	})
}

// ReorderSteps reorders the step list per ids, a permutation of every
// currently-present step_id (§8: output length equals input length,
// every id appears exactly once, no step_id is lost or synthesized).
func (e *Engine) ReorderSteps(ids []int64) error {
	return e.guard(func() error {
		e.slotsMu.Lock()
		defer e.slotsMu.Unlock()

		if len(ids) != len(e.steps) {
			return model.NewError(model.ErrConfigParse, "reorder list length mismatch")
		}
		byID := make(map[int64]model.TestStep, len(e.steps))
		for _, s := range e.steps {
			byID[s.StepID] = s
		}
		seen := make(map[int64]bool, len(ids))
		reordered := make([]model.TestStep, 0, len(ids))
		for _, id := range ids {
			if seen[id] {
				return model.NewError(model.ErrConfigParse, "duplicate step_id in reorder list")
			}
			step, ok := byID[id]
			if !ok {
				return model.NewError(model.ErrStepNotFound, "")
			}
			seen[id] = true
			reordered = append(reordered, step)
		}
		e.steps = reordered
		e.persistLocked()
		return nil
	})
}

// stepsSnapshot returns a shallow copy of the step list.
func (e *Engine) stepsSnapshot() []model.TestStep {
	out := make([]model.TestStep, len(e.steps))
	copy(out, e.steps)
	return out
}
