package config

import "testing"

func TestValidateDeviceTypeValid(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw := []byte(`{"type_name":"psu","plugin_id":"mock","instances":[{"id":"psu0"}]}`)
	if err := v.ValidateDeviceType(raw); err != nil {
		t.Errorf("expected a valid device type to pass, got %v", err)
	}
}

func TestValidateDeviceTypeMissingRequiredField(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw := []byte(`{"display_name":"PSU"}`)
	if err := v.ValidateDeviceType(raw); err == nil {
		t.Error("expected validation to fail without type_name/plugin_id")
	}
}

func TestValidateTestStepExecutionModeRange(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	valid := []byte(`{"step_id":1,"step_name":"s","execution_mode":0}`)
	if err := v.ValidateTestStep(valid); err != nil {
		t.Errorf("expected valid step to pass, got %v", err)
	}
	invalid := []byte(`{"step_id":1,"step_name":"s","execution_mode":7}`)
	if err := v.ValidateTestStep(invalid); err == nil {
		t.Error("expected execution_mode=7 to fail schema validation")
	}
}
