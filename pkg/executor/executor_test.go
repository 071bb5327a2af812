package executor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ormasoftchile/catengine/pkg/callback"
	"github.com/ormasoftchile/catengine/pkg/model"
	"github.com/ormasoftchile/catengine/pkg/slot"
	"github.com/ormasoftchile/catengine/pkg/task"
)

func newSnapshot(steps []model.TestStep, gw *callback.Gateway) Snapshot {
	return Snapshot{Steps: steps, DeviceTypes: map[string]model.DeviceType{}, Gateway: gw, Registry: task.NewRegistry()}
}

func rangeStep(id int64, min, max float64) model.TestStep {
	return model.TestStep{
		StepID:   id,
		StepName: "read",
		Mode:     model.EngineControlled,
		EngineTask: &model.EngineTask{
			TargetDevice: "psu", Action: model.ActionQuery,
			TimeoutMs: 100, ParseRule: &model.ParseRule{Kind: model.ParseNumber},
		},
		SaveTo:    "voltage",
		CheckType: model.CheckBuiltin,
		CheckRule: &model.CheckRule{Kind: model.CheckRange, Min: min, Max: max},
	}
}

// TestSingleStepRangeCheckPass exercises §8 scenario 1: a single
// engine-controlled step whose response satisfies its range check.
func TestSingleStepRangeCheckPass(t *testing.T) {
	gw := callback.NewGateway()
	gw.RegisterEngineTask(func(slotID uint32, taskID uint64, deviceType, address, pluginID, action string, payload []byte, timeoutMs int64) int32 {
		return 0
	})
	registry := task.NewRegistry()
	snap := Snapshot{Steps: []model.TestStep{rangeStep(1, 3.0, 3.6)}, DeviceTypes: map[string]model.DeviceType{}, Gateway: gw, Registry: registry}

	sc := slot.New(0)
	done := make(chan struct{})
	go func() {
		// Deliver a passing reading once the step has registered its task.
		for {
			time.Sleep(time.Millisecond)
			if delivered := deliverFirstPending(registry, sc.SlotID, []byte("3.30")); delivered {
				break
			}
		}
		close(done)
	}()

	Run(context.Background(), sc, snap)
	<-done

	results := sc.StepResults()
	if len(results) != 1 || results[0].Status != model.StepPassed {
		t.Fatalf("expected one passed step, got %+v", results)
	}
	if sc.Status() != model.SlotCompleted {
		t.Errorf("expected slot Completed, got %s", sc.Status())
	}
}

// TestEngineTaskTimeout exercises §8 scenario 2: the host never responds
// within timeout_ms and the step resolves to StepTimeout.
func TestEngineTaskTimeout(t *testing.T) {
	gw := callback.NewGateway()
	gw.RegisterEngineTask(func(slotID uint32, taskID uint64, deviceType, address, pluginID, action string, payload []byte, timeoutMs int64) int32 {
		return 0 // accepted, but never actually submits a result
	})
	step := rangeStep(1, 3.0, 3.6)
	step.EngineTask.TimeoutMs = 20
	snap := newSnapshot([]model.TestStep{step}, gw)

	sc := slot.New(0)
	Run(context.Background(), sc, snap)

	results := sc.StepResults()
	if len(results) != 1 || results[0].Status != model.StepTimeout {
		t.Fatalf("expected one timed-out step, got %+v", results)
	}
}

// TestBranchOnFailSkipsToTarget exercises §8 scenario 3: a failing check
// branches to an explicit next_on_fail target instead of terminating.
func TestBranchOnFailSkipsToTarget(t *testing.T) {
	gw := callback.NewGateway()
	registry := task.NewRegistry()
	gw.RegisterEngineTask(func(slotID uint32, taskID uint64, deviceType, address, pluginID, action string, payload []byte, timeoutMs int64) int32 {
		go deliverEventually(registry, slotID, []byte("10.0"))
		return 0
	})

	failTarget := int64(5)
	step1 := rangeStep(1, 3.0, 3.6)
	step1.NextOnFail = &failTarget
	step2 := model.TestStep{StepID: 5, StepName: "recover", Mode: model.EngineControlled, EngineTask: &model.EngineTask{TargetDevice: "psu", Action: model.ActionQuery, TimeoutMs: 100}}

	snap := Snapshot{Steps: []model.TestStep{step1, step2}, DeviceTypes: map[string]model.DeviceType{}, Gateway: gw, Registry: registry}
	sc := slot.New(0)
	Run(context.Background(), sc, snap)

	results := sc.StepResults()
	if len(results) != 2 {
		t.Fatalf("expected both steps to have run via the branch, got %+v", results)
	}
	if results[0].Status != model.StepFailed {
		t.Errorf("expected step 1 to fail (10.0 outside [3.0,3.6]), got %s", results[0].Status)
	}
	if results[1].StepID != 5 {
		t.Errorf("expected branch target step_id 5 to run next, got %d", results[1].StepID)
	}
}

// TestLoopIterations exercises §8 scenario 4: loop_max_iterations=3,
// loop_delay_ms=10 yields exactly 3 callback invocations and a Completed
// slot.
func TestLoopIterations(t *testing.T) {
	gw := callback.NewGateway()
	var calls int32
	registry := task.NewRegistry()
	gw.RegisterEngineTask(func(slotID uint32, taskID uint64, deviceType, address, pluginID, action string, payload []byte, timeoutMs int64) int32 {
		atomic.AddInt32(&calls, 1)
		go deliverEventually(registry, slotID, []byte("1"))
		return 0
	})
	step := model.TestStep{
		StepID: 1, StepName: "loop", Mode: model.EngineControlled,
		EngineTask: &model.EngineTask{
			TargetDevice: "psu", Action: model.ActionLoop, TimeoutMs: 1000,
			LoopMaxIterations: 3, LoopDelayMs: 10,
		},
	}
	snap := Snapshot{Steps: []model.TestStep{step}, DeviceTypes: map[string]model.DeviceType{}, Gateway: gw, Registry: registry}

	sc := slot.New(0)
	Run(context.Background(), sc, snap)

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected exactly 3 engine-task callback invocations, got %d", got)
	}
	if sc.Status() != model.SlotCompleted {
		t.Errorf("expected slot Completed, got %s", sc.Status())
	}
}

// TestStopMidRunHaltsExecutor exercises §8 scenario 5: ten sequential
// steps, each delayed, with a Stop issued partway through. The slot
// reaches Completed with strictly fewer than 10 results and at least 1.
func TestStopMidRunHaltsExecutor(t *testing.T) {
	gw := callback.NewGateway()
	registry := task.NewRegistry()
	gw.RegisterEngineTask(func(slotID uint32, taskID uint64, deviceType, address, pluginID, action string, payload []byte, timeoutMs int64) int32 {
		go func() {
			time.Sleep(30 * time.Millisecond)
			deliverEventually(registry, slotID, []byte("1"))
		}()
		return 0
	})

	var steps []model.TestStep
	for i := int64(1); i <= 10; i++ {
		steps = append(steps, model.TestStep{
			StepID: i, StepName: "noop", Mode: model.EngineControlled,
			EngineTask: &model.EngineTask{TargetDevice: "psu", Action: model.ActionQuery, TimeoutMs: 5000},
		})
	}
	snap := Snapshot{Steps: steps, DeviceTypes: map[string]model.DeviceType{}, Gateway: gw, Registry: registry}

	sc := slot.New(0)
	done := make(chan struct{})
	go func() {
		Run(context.Background(), sc, snap)
		close(done)
	}()

	time.Sleep(80 * time.Millisecond)
	sc.SendControl(slot.SignalStop)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to return promptly after Stop")
	}

	n := len(sc.StepResults())
	if n < 1 || n >= 10 {
		t.Errorf("expected 1 <= results < 10, got %d", n)
	}
	if sc.Status() != model.SlotCompleted {
		t.Errorf("expected slot Completed after stop, got %s", sc.Status())
	}
}

// TestCompareAcrossVariables exercises §8 scenario 6: a compare
// check over two previously saved variables.
func TestCompareAcrossVariables(t *testing.T) {
	gw := callback.NewGateway()
	registry := task.NewRegistry()
	reading := "100.0"
	gw.RegisterEngineTask(func(slotID uint32, taskID uint64, deviceType, address, pluginID, action string, payload []byte, timeoutMs int64) int32 {
		go deliverEventually(registry, slotID, []byte(reading))
		return 0
	})

	stepA := model.TestStep{
		StepID: 1, StepName: "read_a", Mode: model.EngineControlled,
		EngineTask: &model.EngineTask{TargetDevice: "psu", Action: model.ActionQuery, TimeoutMs: 100, ParseRule: &model.ParseRule{Kind: model.ParseNumber}},
		SaveTo:     "var_a",
	}
	stepB := model.TestStep{
		StepID: 2, StepName: "read_b", Mode: model.EngineControlled,
		EngineTask: &model.EngineTask{TargetDevice: "psu", Action: model.ActionQuery, TimeoutMs: 100, ParseRule: &model.ParseRule{Kind: model.ParseNumber}},
		SaveTo:     "var_b", CheckType: model.CheckBuiltin,
		CheckRule: &model.CheckRule{Kind: model.CheckCompare, VarA: "var_a", VarB: "var_b", Op: model.OpEQ},
	}

	snap := Snapshot{Steps: []model.TestStep{stepA, stepB}, DeviceTypes: map[string]model.DeviceType{}, Gateway: gw, Registry: registry}
	sc := slot.New(0)
	Run(context.Background(), sc, snap)

	results := sc.StepResults()
	if len(results) != 2 {
		t.Fatalf("expected two step results, got %+v", results)
	}
	if results[1].Status != model.StepPassed {
		t.Errorf("expected var_a == var_b to pass, got %s (%s)", results[1].Status, results[1].Summary)
	}
	v, ok := sc.Variables.Get("var_a")
	if !ok || v.Kind != model.VariableFloat {
		t.Errorf("expected var_a saved as a float variable, got %v (ok=%v)", v, ok)
	}
}

func deliverFirstPending(r *task.Registry, slotID uint32, data []byte) bool {
	for id := uint64(1); id < 10_000; id++ {
		if r.Submit(id, slotID, task.Result{Kind: task.ResultOk, Data: data}) {
			return true
		}
	}
	return false
}

func deliverEventually(r *task.Registry, slotID uint32, data []byte) {
	for i := 0; i < 200; i++ {
		if deliverFirstPending(r, slotID, data) {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
