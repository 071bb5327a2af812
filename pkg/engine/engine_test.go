package engine

import (
	"encoding/json"
	"testing"

	"github.com/ormasoftchile/catengine/pkg/model"
)

func TestNewRejectsNonPositiveSlotCount(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("expected an error for slot_count=0")
	}
}

func TestSetSlotCountGrowAndShrink(t *testing.T) {
	eng, err := New(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer eng.Close()

	if err := eng.SetSlotCount(5); err != nil {
		t.Fatalf("unexpected error growing: %v", err)
	}
	if eng.GetSlotCount() != 5 {
		t.Errorf("expected 5 slots, got %d", eng.GetSlotCount())
	}
	if err := eng.SetSlotCount(1); err != nil {
		t.Fatalf("unexpected error shrinking: %v", err)
	}
	if eng.GetSlotCount() != 1 {
		t.Errorf("expected 1 slot, got %d", eng.GetSlotCount())
	}
}

func TestSetSlotCountRejectedWhileRunning(t *testing.T) {
	eng, err := New(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer eng.Close()

	eng.slots[0].ForceState(model.SlotRunning)
	if err := eng.SetSlotCount(3); err == nil {
		t.Error("expected SetSlotCount to be rejected while a slot is Running")
	}
}

func TestReorderStepsIsPermutationOnly(t *testing.T) {
	eng, err := New(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer eng.Close()

	for _, id := range []int64{1, 2, 3} {
		if err := eng.AddTestStep(model.TestStep{StepID: id, StepName: "s"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := eng.ReorderSteps([]int64{3, 1, 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := eng.stepsSnapshot()
	want := []int64{3, 1, 2}
	for i, s := range got {
		if s.StepID != want[i] {
			t.Errorf("position %d: got step_id %d, want %d", i, s.StepID, want[i])
		}
	}

	if err := eng.ReorderSteps([]int64{1, 2}); err == nil {
		t.Error("expected a length-mismatch reorder to be rejected")
	}
	if err := eng.ReorderSteps([]int64{1, 1, 2}); err == nil {
		t.Error("expected a reorder list with a duplicate id to be rejected")
	}
}

func TestLoadConfigMergesAllParts(t *testing.T) {
	eng, err := New(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer eng.Close()

	payload := persistedConfig{
		SlotCount:   1,
		DeviceTypes: map[string]model.DeviceType{"psu": {DisplayName: "PSU"}},
		TestSteps:   []model.TestStep{{StepID: 1, StepName: "read"}},
		SlotBindings: map[string]model.SlotBinding{
			"0": {"psu": []string{"psu0"}},
		},
	}
	raw, _ := json.Marshal(payload)
	if err := eng.LoadConfig(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := eng.deviceTypes["psu"]; !ok {
		t.Error("expected psu device type to be merged")
	}
	if len(eng.stepsSnapshot()) != 1 {
		t.Error("expected one test step merged")
	}
	binding, err := eng.GetSlotBinding(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id, ok := binding.FirstInstance("psu"); !ok || id != "psu0" {
		t.Errorf("expected slot 0 bound to psu0, got %q (ok=%v)", id, ok)
	}
}

func TestGetSlotStatusJSONShape(t *testing.T) {
	eng, err := New(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer eng.Close()

	out, err := eng.GetSlotStatusJSON(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"slot_id", "sn", "status", "current_step", "start_time", "duration_ms"} {
		if _, ok := parsed[key]; !ok {
			t.Errorf("expected key %q in status JSON", key)
		}
	}
}

func TestGetConfigJSONDerivesDevicesIndex(t *testing.T) {
	eng, err := New(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer eng.Close()

	dt := model.DeviceType{TypeName: "psu", DisplayName: "PSU", Instances: []model.DeviceInstance{{ID: "psu0"}}}
	if err := eng.AddDeviceType(dt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := eng.GetConfigJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed configJSONResponse
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	instances, ok := parsed.Devices["psu"]
	if !ok || len(instances) != 1 || instances[0].ID != "psu0" {
		t.Errorf("expected derived devices index to list psu0, got %+v", parsed.Devices)
	}
}
