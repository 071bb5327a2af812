package main

import "github.com/ormasoftchile/catengine/pkg/model"

// demoDeviceType returns a single mock power-supply device type with one
// instance. The demo binds no slot to that instance, so engine-task
// requests reach the mock host with an empty device address, which the
// mock host ignores.
func demoDeviceType() model.DeviceType {
	return model.DeviceType{
		TypeName:    "power_supply",
		DisplayName: "Mock Power Supply",
		PluginID:    "mock",
		Instances: []model.DeviceInstance{
			{ID: "psu0", DisplayName: "PSU 0", Address: "mock://psu0"},
		},
		Commands: []model.DeviceCommand{
			{Name: "read_voltage", Description: "query the output voltage"},
		},
	}
}

// demoSteps returns a single engine-controlled step that queries the
// mock power supply and range-checks the reading.
func demoSteps() []model.TestStep {
	includeBound := true
	return []model.TestStep{
		{
			StepID:   1,
			StepName: "read_voltage_rail",
			Mode:     model.EngineControlled,
			EngineTask: &model.EngineTask{
				TargetDevice: "power_supply",
				Action:       model.ActionQuery,
				Payload:      []byte(`{"command":"read_voltage"}`),
				TimeoutMs:    2000,
				ParseRule:    &model.ParseRule{Kind: model.ParseNumber},
			},
			SaveTo:    "voltage_rail",
			CheckType: model.CheckBuiltin,
			CheckRule: &model.CheckRule{
				Kind:       model.CheckRange,
				Min:        3.0,
				Max:        3.6,
				IncludeMin: &includeBound,
				IncludeMax: &includeBound,
			},
		},
	}
}
