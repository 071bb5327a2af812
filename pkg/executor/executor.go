// Package executor implements the Step Executor (§4.G): the per-slot
// asynchronous loop driving step selection, dispatch, await, and
// branching. This is the hardest part of the engine: it races step
// execution against cooperative control signals, handles per-step
// timeout with task cleanup, and implements the pause/resume/stop/skip
// state machine atop the control channel.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ormasoftchile/catengine/pkg/callback"
	"github.com/ormasoftchile/catengine/pkg/checker"
	"github.com/ormasoftchile/catengine/pkg/model"
	"github.com/ormasoftchile/catengine/pkg/parser"
	"github.com/ormasoftchile/catengine/pkg/slot"
	"github.com/ormasoftchile/catengine/pkg/task"
)

// Snapshot is everything the executor needs at start, taken by the
// caller (the Engine Facade) to avoid the slot holding a back-reference
// to the engine (§9).
type Snapshot struct {
	Steps       []model.TestStep
	DeviceTypes map[string]model.DeviceType
	Gateway     *callback.Gateway
	Registry    *task.Registry
}

func (s Snapshot) stepIndexByID() map[int64]int {
	idx := make(map[int64]int, len(s.Steps))
	for i, st := range s.Steps {
		idx[st.StepID] = i
	}
	return idx
}

// Run is the blocking entry point: it runs to completion on the
// caller's goroutine, driving the slot until it terminates. A no-op if
// the step list is empty.
func Run(ctx context.Context, sc *slot.Context, snap Snapshot) {
	runSlotAsync(ctx, sc, snap)
}

// Spawn is the non-blocking entry point: work runs on a new goroutine.
func Spawn(ctx context.Context, sc *slot.Context, snap Snapshot) {
	go runSlotAsync(ctx, sc, snap)
}

func finishSlot(sc *slot.Context) {
	sc.ForceState(model.SlotCompleted)
	sc.MarkEnd()
	sc.ReinitControlChannel()
}

// outcome describes how one iteration of the main loop ended.
type outcome int

const (
	outcomeAdvance outcome = iota // move to the returned next index
	outcomeStopped                // slot was stopped; caller must return
	outcomeRetry                  // paused then resumed; redispatch same index
)

func runSlotAsync(ctx context.Context, sc *slot.Context, snap Snapshot) {
	if len(snap.Steps) == 0 {
		return
	}

	sc.ForceState(model.SlotRunning)
	sc.MarkStart()
	ctrlRx := sc.TakeControlRx()
	stepIndex := snap.stepIndexByID()
	total := len(snap.Steps)

	i := 0
	for i < total {
		sc.SetCurrentStepIndex(i)
		step := snap.Steps[i]

		next, oc := runOneStep(ctx, sc, ctrlRx, snap, step, i, total, stepIndex)
		switch oc {
		case outcomeStopped:
			return
		case outcomeRetry:
			// i unchanged: the in-flight step future is discarded and
			// the same index is retried from scratch on Resume.
		case outcomeAdvance:
			i = next
		}
	}

	finishSlot(sc)
}

// runOneStep races one step's execution against the control channel,
// looping internally while a signal arrives that should be ignored
// without disturbing the in-flight step (§4.G: "other signals ignored,
// preserve index").
func runOneStep(ctx context.Context, sc *slot.Context, ctrlRx <-chan slot.ControlSignal, snap Snapshot, step model.TestStep, curIndex, total int, stepIndex map[int64]int) (int, outcome) {
	stepDone := make(chan model.StepResult, 1)
	go func() {
		stepDone <- executeStep(ctx, sc, step, snap)
	}()

	for {
		select {
		case result := <-stepDone:
			sc.AddStepResult(result)
			pushUIUpdate(sc, snap, step, total)
			next, terminate := resolveNext(step, result, stepIndex, total, snap.Gateway)
			if terminate {
				return total, outcomeAdvance
			}
			return next, outcomeAdvance

		case sig := <-ctrlRx:
			switch sig {
			case slot.SignalStop:
				finishSlot(sc)
				return 0, outcomeStopped

			case slot.SignalPause:
				_ = sc.Transition(model.SlotPaused)
				pushUIUpdate(sc, snap, step, total)
				if !pauseLoop(sc, ctrlRx) {
					return 0, outcomeStopped
				}
				return curIndex, outcomeRetry

			case slot.SignalSkipCurrent:
				return curIndex + 1, outcomeAdvance

			default:
				// StepNext or any other signal while a step is
				// in-flight: ignored, keep waiting on the same
				// in-flight step and control channel.
			}
		}
	}
}

// pauseLoop blocks in a nested receive accepting only Resume (returns
// true) or Stop (returns false, and finishes the slot itself). Other
// signals are ignored while paused.
func pauseLoop(sc *slot.Context, ctrlRx <-chan slot.ControlSignal) bool {
	for sig := range ctrlRx {
		switch sig {
		case slot.SignalResume:
			_ = sc.Transition(model.SlotRunning)
			return true
		case slot.SignalStop:
			finishSlot(sc)
			return false
		default:
			// ignored while paused
		}
	}
	return false
}

// resolveNext computes the next step index per §4.G's branch table.
func resolveNext(step model.TestStep, result model.StepResult, stepIndex map[int64]int, total int, gw *callback.Gateway) (next int, terminate bool) {
	var target *int64
	fallbackTerminate := false
	fallbackIndex := 0

	switch result.Status {
	case model.StepPassed, model.StepSkipped:
		target = step.NextOnPass
		fallbackIndex = stepIndex[step.StepID] + 1
	case model.StepFailed:
		target = step.NextOnFail
		fallbackTerminate = true
	case model.StepTimeout:
		target = step.NextOnTimeout
		fallbackTerminate = true
	case model.StepError:
		target = step.NextOnError
		fallbackTerminate = true
	default:
		return total, true
	}

	if target == nil {
		if fallbackTerminate {
			return total, true
		}
		return fallbackIndex, false
	}

	idx, ok := stepIndex[*target]
	if !ok {
		// Unknown step_id, including the conventional "end" sentinel
		// (e.g. next_on_fail: 999): log and terminate.
		gw.EmitLog("error", "executor", fmt.Sprintf("branch target step_id %d not found; terminating slot", *target))
		return total, true
	}
	return idx, false
}

func pushUIUpdate(sc *slot.Context, snap Snapshot, step model.TestStep, total int) {
	snapshot := map[string]any{
		"type":      "ui_snapshot",
		"timestamp": time.Now().UnixMilli(),
		"slots": []map[string]any{
			{
				"slot_id": sc.SlotID,
				"sn":      sc.SN(),
				"status":  sc.Status().String(),
				"progress": map[string]any{
					"current": sc.CurrentStepIndex(),
					"total":   total,
				},
				"current_step_name": step.StepName,
				"variables":         sc.Variables.ToDisplayMap(),
			},
		},
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	snap.Gateway.PushUIUpdate(payload)
}

// executeStep dispatches a single step and returns its immutable result.
func executeStep(ctx context.Context, sc *slot.Context, step model.TestStep, snap Snapshot) model.StepResult {
	start := time.Now()

	if step.Skip {
		return model.StepResult{
			StepID: step.StepID, StepName: step.StepName,
			Status: model.StepSkipped, ElapsedMs: 0, Summary: "skipped",
		}
	}

	var respBytes []byte
	var dispatchErr error

	switch step.Mode {
	case model.EngineControlled:
		respBytes, dispatchErr = executeEngineControlled(ctx, sc, step, snap)
	case model.HostControlled:
		respBytes, dispatchErr = executeHostControlled(ctx, sc, step, snap)
	default:
		dispatchErr = model.NewError(model.ErrInternal, "unknown execution mode")
	}

	elapsed := time.Since(start).Milliseconds()

	if dispatchErr != nil {
		return mapDispatchError(step, elapsed, dispatchErr, sc)
	}

	return processResponse(sc, snap.Gateway, step, respBytes, elapsed)
}

// mapDispatchError implements §4.G's failure mapping: Timeout -> Timeout
// status; ExecutionError -> Failed with error_message (also set as slot
// last_error); other errors -> Failed.
func mapDispatchError(step model.TestStep, elapsedMs int64, err error, sc *slot.Context) model.StepResult {
	ee, ok := err.(*model.EngineError)
	if ok && ee.Kind == model.ErrTimeout {
		return model.StepResult{
			StepID: step.StepID, StepName: step.StepName,
			Status: model.StepTimeout, ElapsedMs: elapsedMs,
			Summary: "timeout",
		}
	}
	msg := err.Error()
	if ok && ee.Kind == model.ErrExecution {
		msg = ee.Message
	}
	sc.SetError(msg)
	return model.StepResult{
		StepID: step.StepID, StepName: step.StepName,
		Status: model.StepFailed, ElapsedMs: elapsedMs,
		Summary: "failed", ErrorMessage: msg,
	}
}

// processResponse parses, saves, and checks a successful response,
// implementing §4.G's response-processing rules, including the literal
// error-path and default summary strings spec.md quotes verbatim.
func processResponse(sc *slot.Context, gw *callback.Gateway, step model.TestStep, respBytes []byte, elapsedMs int64) model.StepResult {
	result := model.StepResult{StepID: step.StepID, StepName: step.StepName, ElapsedMs: elapsedMs}

	var parsedValue *model.Variable
	if step.EngineTask != nil && step.EngineTask.ParseRule != nil {
		text, err := parser.Parse(*step.EngineTask.ParseRule, respBytes)
		if err == nil {
			v := model.ParseVariable(text)
			parsedValue = &v
		}
		// A parse failure leaves parsedValue nil; save_to becomes a
		// no-op and a check needing it will fail with CheckError below.
	}

	if step.SaveTo != "" && parsedValue != nil {
		sc.Variables.Set(step.SaveTo, *parsedValue)
		result.FinalValue = parsedValue
	}

	if step.CheckType != model.CheckNone && step.CheckRule != nil {
		detail, err := checker.Evaluate(*step.CheckRule, sc.Variables, parsedValue)
		if err != nil {
			msg := err.Error()
			sc.SetError(msg)
			gw.EmitLog("error", "check", msg)
			result.Status = model.StepError
			result.Summary = fmt.Sprintf("检查执行错误: %s", msg)
			result.ErrorMessage = msg
			return result
		}
		result.CheckDetail = &detail
		result.Summary = detail.Summary
		if detail.Passed {
			result.Status = model.StepPassed
		} else {
			result.Status = model.StepFailed
		}
		return result
	}

	result.Status = model.StepPassed
	result.Summary = "完成"
	return result
}
