package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/ormasoftchile/catengine/pkg/model"
	"github.com/ormasoftchile/catengine/pkg/slot"
	"github.com/ormasoftchile/catengine/pkg/task"
)

func actionName(a model.ActionType) string {
	switch a {
	case model.ActionSend:
		return "send"
	case model.ActionQuery:
		return "query"
	case model.ActionWait:
		return "wait"
	case model.ActionLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// resolveBinding looks up the device address and plugin id for
// engineTask.TargetDevice from the slot's binding and the device-type
// catalog snapshot. An absent binding yields empty strings — the host is
// expected to reject the request (§4.G).
func resolveBinding(sc *slot.Context, snap Snapshot, targetDevice string) (address, pluginID string) {
	deviceType, typeOK := snap.DeviceTypes[targetDevice]
	if typeOK {
		pluginID = deviceType.PluginID
	}
	instanceID, boundOK := sc.Bindings().FirstInstance(targetDevice)
	if typeOK && boundOK {
		if instance, ok := deviceType.InstanceByID(instanceID); ok {
			address = instance.Address
		}
	}
	return address, pluginID
}

// executeEngineControlled dispatches an EngineTask, looping
// loop_max_iterations times (default 1), racing each iteration's
// response against its timeout, and sleeping loop_delay_ms between
// iterations (except after the last). Returns the last response's bytes
// once every iteration has succeeded; any non-Ok result short-circuits.
func executeEngineControlled(ctx context.Context, sc *slot.Context, step model.TestStep, snap Snapshot) ([]byte, error) {
	et := step.EngineTask
	if et == nil {
		return nil, model.NewError(model.ErrInternal, "EngineControlled step missing engine_task")
	}

	address, pluginID := resolveBinding(sc, snap, et.TargetDevice)
	maxIter := et.EffectiveLoopMaxIterations()
	timeout := time.Duration(et.TimeoutMs) * time.Millisecond

	var lastData []byte
	for iter := 0; iter < maxIter; iter++ {
		taskID := task.NextID()
		ch := snap.Registry.Register(taskID, sc.SlotID)

		code := snap.Gateway.CallEngineTask(sc.SlotID, taskID, et.TargetDevice, address, pluginID, actionName(et.Action), et.Payload, et.TimeoutMs)
		if code != 0 {
			snap.Registry.Cancel(taskID)
			return nil, model.NewError(model.ErrExecution, fmt.Sprintf("host rejected engine task (code %d)", code))
		}

		select {
		case result := <-ch:
			switch result.Kind {
			case task.ResultOk:
				lastData = result.Data
			case task.ResultTimeout:
				return nil, &model.EngineError{Kind: model.ErrTimeout, TimeoutMs: et.TimeoutMs}
			case task.ResultError:
				return nil, model.NewError(model.ErrExecution, result.Message)
			}
		case <-time.After(timeout):
			snap.Registry.Cancel(taskID)
			return nil, &model.EngineError{Kind: model.ErrTimeout, TimeoutMs: et.TimeoutMs}
		case <-ctx.Done():
			snap.Registry.Cancel(taskID)
			return nil, model.NewError(model.ErrInterrupted, ctx.Err().Error())
		}

		if et.LoopDelayMs > 0 && iter < maxIter-1 {
			select {
			case <-time.After(time.Duration(et.LoopDelayMs) * time.Millisecond):
			case <-ctx.Done():
				return nil, model.NewError(model.ErrInterrupted, ctx.Err().Error())
			}
		}
	}

	return lastData, nil
}

// executeHostControlled dispatches a HostTask: a single-shot analog of
// executeEngineControlled with JSON-serialized params and no device
// binding.
func executeHostControlled(ctx context.Context, sc *slot.Context, step model.TestStep, snap Snapshot) ([]byte, error) {
	ht := step.HostTask
	if ht == nil {
		return nil, model.NewError(model.ErrInternal, "HostControlled step missing host_task")
	}

	taskID := task.NextID()
	ch := snap.Registry.Register(taskID, sc.SlotID)
	timeout := time.Duration(ht.TimeoutMs) * time.Millisecond

	code := snap.Gateway.CallHostTask(sc.SlotID, taskID, ht.TaskName, ht.Params, ht.TimeoutMs)
	if code != 0 {
		snap.Registry.Cancel(taskID)
		return nil, model.NewError(model.ErrExecution, fmt.Sprintf("host rejected host task (code %d)", code))
	}

	select {
	case result := <-ch:
		switch result.Kind {
		case task.ResultOk:
			return result.Data, nil
		case task.ResultTimeout:
			return nil, &model.EngineError{Kind: model.ErrTimeout, TimeoutMs: ht.TimeoutMs}
		case task.ResultError:
			return nil, model.NewError(model.ErrExecution, result.Message)
		}
	case <-time.After(timeout):
		snap.Registry.Cancel(taskID)
		return nil, &model.EngineError{Kind: model.ErrTimeout, TimeoutMs: ht.TimeoutMs}
	case <-ctx.Done():
		snap.Registry.Cancel(taskID)
		return nil, model.NewError(model.ErrInterrupted, ctx.Err().Error())
	}
	return nil, model.NewError(model.ErrInternal, "unreachable")
}
